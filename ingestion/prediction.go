package ingestion

import (
	"context"
	"log/slog"

	"github.com/poiesic/fraudlens/ai"
	"github.com/poiesic/fraudlens/core"
)

// predictionProcessor scores embedded articles with the offline ML model.
// Articles without an embedding are left untouched.
type predictionProcessor struct {
	predictor ai.Predictor
	logger    *slog.Logger
}

var _ processor = (*predictionProcessor)(nil)

func newPredictionProcessor(predictor ai.Predictor, logger *slog.Logger) *predictionProcessor {
	return &predictionProcessor{
		predictor: predictor,
		logger:    logger.With("processor", "prediction"),
	}
}

func (pp *predictionProcessor) name() string {
	return "prediction"
}

func (pp *predictionProcessor) process(_ context.Context, article *core.Article) error {
	if !article.HasEmbedding() {
		return nil
	}
	prediction, err := pp.predictor.Predict(article.Embedding)
	if err != nil {
		return err
	}
	article.Prediction = &prediction

	pp.logger.Debug("predicted fraud type", "id", article.Id, "category", prediction.Category, "confidence", prediction.Confidence)
	return nil
}
