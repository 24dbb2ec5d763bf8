package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/crop-advisor/internal/classifier"
)

var (
	trainData string
	trainOut  string
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the crop classifier and save the model",
	Long:  "Fits the classifier on a CSV dataset (local path or URL, default: the bundled reference data) and writes the model bundle.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if trainData != "" {
			cfg.Model.TrainingData = trainData
		}
		if trainOut != "" {
			cfg.Model.Path = trainOut
		}
		if err := cfg.Validate("train"); err != nil {
			return err
		}

		svc := newClassifier(classifier.Hooks{})
		m, err := svc.Train(ctx)
		if err != nil {
			return err
		}

		samples, err := classifier.LoadSamples(ctx, newFetcher(), cfg.Model.TrainingData)
		if err != nil {
			return err
		}
		acc := m.Evaluate(samples)

		zap.L().Info("train: model saved",
			zap.String("path", cfg.Model.Path),
			zap.Float64("training_accuracy", acc),
		)

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "Trained on %d samples, %d crops\n", m.Samples, len(m.Labels))
		_, _ = fmt.Fprintf(out, "Training accuracy: %.2f%%\n", acc*100)
		_, _ = fmt.Fprintf(out, "Model saved to %s\n", cfg.Model.Path)
		return nil
	},
}

func init() {
	trainCmd.Flags().StringVar(&trainData, "data", "", "training CSV path or URL (overrides model.training_data)")
	trainCmd.Flags().StringVar(&trainOut, "out", "", "model bundle path (overrides model.path)")
	rootCmd.AddCommand(trainCmd)
}
