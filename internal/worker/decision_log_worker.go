package worker

import (
	"github.com/spec-kit/gatekeeper/internal/service"
)

// StartDecisionLogWorker registers decision log handlers.
func StartDecisionLogWorker(decisionLogService *service.DecisionLogService) {
	if decisionLogService == nil {
		return
	}
	decisionLogService.RegisterHandlers()
}
