package scheduler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/resonatelabs/resonate/internal/config"
	"github.com/resonatelabs/resonate/internal/health"
	"github.com/resonatelabs/resonate/internal/models"
	"github.com/resonatelabs/resonate/internal/rpb"
)

// Core job ids, matched against the scheduler config.
const (
	JobProfileRebuildDaily = "profile-rebuild-daily"
	JobHealthSweep         = "conversation-health-sweep"
	JobProfileRebuildVoice = "profile-rebuild-voice"
	JobAccountDeleted      = "account-cleanup"
)

// voiceNotePayload is the body of the voice-note-uploaded trigger.
type voiceNotePayload struct {
	UserID   string `json:"userId"`
	AudioURL string `json:"audioUrl"`
}

// accountDeletedPayload is the body of the account-deleted trigger.
type accountDeletedPayload struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// RegisterCoreJobs binds the configured jobs to the rebuild and health
// handlers. Jobs present in the config but unknown here are rejected.
func RegisterCoreJobs(s *Scheduler, cfg config.SchedulerConfig, builder *rpb.Builder, monitor *health.Monitor) error {
	for _, jc := range cfg.Jobs {
		var handler HandlerFunc
		switch jc.ID {
		case JobProfileRebuildDaily:
			handler = func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
				return builder.RebuildAll(ctx)
			}
		case JobHealthSweep:
			handler = func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
				return monitor.Sweep(ctx)
			}
		case JobProfileRebuildVoice:
			handler = func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
				var p voiceNotePayload
				if err := json.Unmarshal(payload, &p); err != nil {
					return nil, fmt.Errorf("%s payload: %w", models.TriggerVoiceNoteUploaded, err)
				}
				if p.UserID == "" {
					return nil, fmt.Errorf("%s payload missing userId: %w", models.TriggerVoiceNoteUploaded, models.ErrValidation)
				}
				profile, err := builder.Rebuild(ctx, p.UserID)
				if err != nil {
					return nil, err
				}
				return map[string]interface{}{"userId": p.UserID, "completeness": profile.Completeness}, nil
			}
		case JobAccountDeleted:
			handler = func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
				var p accountDeletedPayload
				if err := json.Unmarshal(payload, &p); err != nil {
					return nil, fmt.Errorf("%s payload: %w", models.TriggerAccountDeleted, err)
				}
				if p.UserID == "" {
					return nil, fmt.Errorf("%s payload missing userId: %w", models.TriggerAccountDeleted, models.ErrValidation)
				}
				return map[string]string{"userId": p.UserID}, builder.DeleteUserData(ctx, p.UserID)
			}
		default:
			return fmt.Errorf("unknown job id %q in scheduler config", jc.ID)
		}
		if err := s.Register(jc, handler); err != nil {
			return err
		}
	}
	return nil
}
