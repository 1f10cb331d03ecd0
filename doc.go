// Package abalone predicts the age of an abalone from its physical
// measurements with a gradient boosted regression model trained offline
// and served one record at a time.
//
// The repository is organized around the model lifecycle: a CSV dataset
// becomes a feature frame, the frame is split and fitted, the fitted model
// is saved together with the feature schema it was trained on, and the
// serving path encodes each request with that same schema.
//
// # Quick Start
//
// Train and serve from the command line:
//
//	abalone train --data data/abalone.csv --model models/model.abalone
//	abalone serve --model models/model.abalone --addr :8000
//
//	curl -X POST localhost:8000/predict -H 'Content-Type: application/json' -d \
//	  '{"length":0.4,"diameter":0.3,"height":0.1,"whole_weight":0.5,
//	    "shucked_weight":0.2,"viscera_weight":0.1,"shell_weight":0.15,"sex":"M"}'
//
// Or from Go:
//
//	ds, err := dataset.ReadCSV("data/abalone.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := pipeline.Train(ctx, ds, pipeline.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("RMSE:", res.Evaluation.RMSE, "R²:", res.Evaluation.R2)
//
// # Packages
//
//   - dataset: CSV ingestion into an immutable Dataset
//   - preprocessing: target derivation, drop-first one-hot encoding and the
//     versioned FeatureSchema shared by training and serving
//   - selection: deterministic train/test split
//   - sklearn/gbdt: gradient boosted regression trees
//   - metrics: RMSE and R²
//   - artifact: atomic save, validated load and a bounded single-flight cache
//   - serving: the inference adapter and its HTTP server
//   - pipeline: the training flow, one retried step at a time
//   - tracking: run parameters and metrics in a bbolt file
//   - report: predicted-vs-actual chart
//   - pkg/errors, pkg/log, pkg/config, pkg/retry: shared infrastructure
//   - core/model: fitted-state bookkeeping for estimators
package abalone
