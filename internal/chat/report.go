package chat

import (
	"context"
	"log/slog"

	"github.com/harborchat/harbor-client/internal/fault"
	"github.com/harborchat/harbor-client/internal/ledger"
	"github.com/harborchat/harbor-client/internal/notify"
)

// ReportAPI is the slice of the REST client the report feature needs.
type ReportAPI interface {
	ReportMessage(ctx context.Context, messageID, reason string) error
	ReportUser(ctx context.Context, userID, reason string) error
}

// Reports files abuse reports. Reporting is deliberately not optimistic:
// nothing is marked locally until the server accepts the report, and the
// error is returned so the UI can keep the report form open.
type Reports struct {
	feature
	api ReportAPI
}

// NewReports builds the report feature store.
func NewReports(cache *Cache, api ReportAPI, emitter Emitter, led *ledger.Ledger, notifier notify.Notifier, logger *slog.Logger) *Reports {
	return &Reports{
		feature: newFeature(cache, emitter, led, notifier, logger),
		api:     api,
	}
}

// ReportMessage files a report against a message.
func (r *Reports) ReportMessage(ctx context.Context, messageID, reason string) error {
	if err := r.api.ReportMessage(ctx, messageID, reason); err != nil {
		r.fail(err, fault.Context{
			"feature":   "reports",
			"operation": "report_message",
			"messageId": messageID,
			"reason":    reason,
		})
		return err
	}
	r.cache.MarkMessageReported(messageID)
	r.confirm(EventMessageReported, MessageRef{MessageID: messageID}, "Report submitted. Thank you.")
	return nil
}

// ReportUser files a report against a user.
func (r *Reports) ReportUser(ctx context.Context, userID, reason string) error {
	if err := r.api.ReportUser(ctx, userID, reason); err != nil {
		r.fail(err, fault.Context{
			"feature":   "reports",
			"operation": "report_user",
			"userId":    userID,
			"reason":    reason,
		})
		return err
	}
	r.cache.MarkUserReported(userID)
	r.confirm(EventUserReported, UserRef{UserID: userID}, "Report submitted. Thank you.")
	return nil
}
