package alerts

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/service/whatsapp"
)

// Notifier sends a herd risk digest to the farm manager.
type Notifier struct {
	messenger whatsapp.MessagingService
	recipient string
	logger    *zap.Logger
}

// NewNotifier builds a notifier delivering to recipient.
func NewNotifier(messenger whatsapp.MessagingService, recipient string, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		messenger: messenger,
		recipient: recipient,
		logger:    logger,
	}
}

// NotifyRisks sends one message listing every high or critical health risk
// result. It returns the number of animals flagged; nothing is sent when none are.
func (n *Notifier) NotifyRisks(ctx context.Context, results []models.PredictionResult) (int, error) {
	flagged := AtRisk(results)
	if len(flagged) == 0 {
		return 0, nil
	}

	req := models.OutboundMessageRequest{
		To:      n.recipient,
		Message: FormatDigest(flagged),
	}
	if err := n.messenger.SendOutbound(ctx, req); err != nil {
		return len(flagged), fmt.Errorf("send risk digest: %w", err)
	}

	n.logger.Info("risk digest sent", zap.Int("flagged", len(flagged)))
	return len(flagged), nil
}

// AtRisk keeps health risk results at high or critical level, riskiest first.
func AtRisk(results []models.PredictionResult) []models.PredictionResult {
	var flagged []models.PredictionResult
	for _, r := range results {
		if r.Kind != models.PredictionHealthRisk {
			continue
		}
		if r.RiskLevel == models.RiskHigh || r.RiskLevel == models.RiskCritical {
			flagged = append(flagged, r)
		}
	}
	sort.SliceStable(flagged, func(i, j int) bool {
		return flagged[i].PredictedValue > flagged[j].PredictedValue
	})
	return flagged
}

// FormatDigest renders flagged results as a WhatsApp text body.
func FormatDigest(flagged []models.PredictionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Health risk alert*: %d animal(s) need attention\n", len(flagged))
	for _, r := range flagged {
		fmt.Fprintf(&b, "\n- %s: %s (%.0f%%)", r.AnimalID, strings.ToUpper(string(r.RiskLevel)), r.PredictedValue*100)
		if len(r.Recommendations) > 0 {
			fmt.Fprintf(&b, "\n  %s", r.Recommendations[0])
		}
	}
	return b.String()
}
