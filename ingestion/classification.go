package ingestion

import (
	"context"
	"log/slog"

	"github.com/poiesic/fraudlens/core"
)

// classificationProcessor applies the rule classifier to normalized text.
type classificationProcessor struct {
	classifier Classifier
	logger     *slog.Logger
}

var _ processor = (*classificationProcessor)(nil)

func newClassificationProcessor(classifier Classifier, logger *slog.Logger) *classificationProcessor {
	return &classificationProcessor{
		classifier: classifier,
		logger:     logger.With("processor", "classification"),
	}
}

func (cp *classificationProcessor) name() string {
	return "classification"
}

func (cp *classificationProcessor) process(_ context.Context, article *core.Article) error {
	result, err := cp.classifier.Classify(article.NormalizedText)
	if err != nil {
		return err
	}

	article.FraudType = result.Category
	article.FraudTags = result.Tags
	article.Summary = result.Summary
	article.Classified = true

	cp.logger.Debug("classified article", "id", article.Id, "fraud_type", article.FraudType, "tags", len(article.FraudTags))
	return nil
}
