package notifications

import (
	"log"

	"github.com/anjiri1684/academy_billing/services"
	"github.com/google/uuid"
	"github.com/rollbar/rollbar-go"
	rollbarerrors "github.com/rollbar/rollbar-go/errors"
)

// RollbarReporter sends engine warnings and per-student failures to Rollbar.
// Without a token it only logs.
type RollbarReporter struct {
	enabled bool
}

var _ services.AlertReporter = (*RollbarReporter)(nil)

func NewRollbarReporter(token, environment, codeVersion string) *RollbarReporter {
	rollbar.SetToken(token)
	rollbar.SetEnvironment(environment)
	rollbar.SetCodeVersion(codeVersion)
	rollbar.SetStackTracer(rollbarerrors.StackTracer)
	rollbar.SetEnabled(token != "")
	if token == "" {
		log.Println("⚠️ Rollbar not configured, alerts will only be logged.")
	}
	return &RollbarReporter{enabled: token != ""}
}

func (r *RollbarReporter) Warning(w services.InconsistentStateWarning) {
	if !r.enabled {
		return
	}
	extras := map[string]interface{}{"student_id": w.StudentID.String()}
	if w.PackageID != nil {
		extras["package_id"] = w.PackageID.String()
	}
	if w.ClassID != nil {
		extras["class_id"] = w.ClassID.String()
	}
	rollbar.Warning(w.String(), extras)
}

func (r *RollbarReporter) Error(studentID uuid.UUID, err error) {
	log.Printf("🔥 Student %s: %v", studentID, err)
	if !r.enabled {
		return
	}
	rollbar.Error(err, map[string]interface{}{"student_id": studentID.String()})
}

// Close blocks until queued reports are sent.
func (r *RollbarReporter) Close() {
	if r.enabled {
		rollbar.Wait()
	}
}
