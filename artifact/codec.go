package artifact

import (
	"bytes"
	"encoding/gob"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/YuminosukeSato/abalone/pkg/errors"
)

// Artifact files start with magic followed by one format byte. The rest is
// a zstd frame holding the gob encoded Artifact.
var magic = []byte("ABLN")

const formatVersion byte = 1

// maxDecodedSize bounds the memory a corrupt or hostile file can claim.
const maxDecodedSize = 1 << 30

var (
	encoderPool = sync.Pool{
		New: func() interface{} {
			enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
			return enc
		},
	}
	decoderPool = sync.Pool{
		New: func() interface{} {
			dec, _ := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedSize), zstd.WithDecoderConcurrency(1))
			return dec
		},
	}
)

// Marshal encodes an artifact into the on-disk format.
func Marshal(a *Artifact) ([]byte, error) {
	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(a); err != nil {
		return nil, errors.Wrap(err, "encode artifact")
	}

	enc := encoderPool.Get().(*zstd.Encoder)
	defer encoderPool.Put(enc)

	out := make([]byte, 0, len(magic)+1+raw.Len()/2)
	out = append(out, magic...)
	out = append(out, formatVersion)
	return enc.EncodeAll(raw.Bytes(), out), nil
}

// Unmarshal decodes data produced by Marshal. path is only used in errors.
// Every decoding failure, including an artifact whose schema and model
// disagree, is a CorruptArtifactError.
func Unmarshal(path string, data []byte) (*Artifact, error) {
	if len(data) < len(magic)+1 || !bytes.Equal(data[:len(magic)], magic) {
		return nil, errors.NewCorruptArtifactError(path, "bad magic header", nil)
	}
	if v := data[len(magic)]; v != formatVersion {
		return nil, errors.NewCorruptArtifactError(path, "unsupported format version", errors.Newf("version %d", v))
	}

	dec := decoderPool.Get().(*zstd.Decoder)
	defer decoderPool.Put(dec)

	raw, err := dec.DecodeAll(data[len(magic)+1:], nil)
	if err != nil {
		return nil, errors.NewCorruptArtifactError(path, "decompress", err)
	}

	var a Artifact
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&a); err != nil {
		return nil, errors.NewCorruptArtifactError(path, "decode", err)
	}
	if err := a.Validate(); err != nil {
		return nil, errors.NewCorruptArtifactError(path, "inconsistent artifact", err)
	}
	return &a, nil
}
