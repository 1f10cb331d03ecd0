package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/abalone/pipeline"
	"github.com/YuminosukeSato/abalone/tracking"
)

func newTrainCmd(a *app) *cobra.Command {
	var (
		dataPath  string
		modelPath string
		plotPath  string
		keepRings bool
		tracker   string
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a model and save the artifact",
		Long: `Read the dataset, build features, split 67/33, fit the model, evaluate it on
the test rows and save the artifact. RMSE and R² are recorded in the
tracking store.

Example:
  abalone train --data data/abalone.csv --model models/model.abalone --plot eval.png`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			flags := cmd.Flags()
			if flags.Changed("data") {
				cfg.Data.Path = dataPath
			}
			if flags.Changed("model") {
				cfg.Model.Path = modelPath
			}
			if flags.Changed("plot") {
				cfg.Training.PlotPath = plotPath
			}
			if flags.Changed("keep-rings") {
				cfg.Training.DropRings = !keepRings
			}
			if flags.Changed("tracking") {
				cfg.Tracking.Path = tracker
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			sink, err := tracking.Open(cfg.Tracking.Path)
			if err != nil {
				return err
			}
			defer sink.Close()

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			res, err := pipeline.Run(ctx, pipeline.OptionsFromConfig(cfg), sink)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "saved %s (run %s): rmse=%.4f r2=%.4f train=%d test=%d\n",
				cfg.Model.Path, res.Artifact.Metadata.RunID,
				res.Evaluation.RMSE, res.Evaluation.R2,
				res.Split.XTrain.Rows(), res.Split.XTest.Rows())
			return nil
		},
	}

	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "Path to the abalone CSV")
	cmd.Flags().StringVarP(&modelPath, "model", "m", "", "Where to write the model artifact")
	cmd.Flags().StringVar(&plotPath, "plot", "", "Write a predicted-vs-actual chart (.png, .svg, .pdf)")
	cmd.Flags().BoolVar(&keepRings, "keep-rings", false, "Keep Rings as a feature (the artifact cannot be served)")
	cmd.Flags().StringVar(&tracker, "tracking", "", "Path of the run tracking database (empty: log only)")
	return cmd
}
