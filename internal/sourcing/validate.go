package sourcing

import (
	"fmt"
	"strings"
	"worksheet_backend/internal/model"
)

const (
	MinGrade = 1
	MaxGrade = 11
)

// Validate 在调用任何外部协作方之前校验请求。maxTaskCount <= 0 表示不限制。
func Validate(req model.GenerationRequest, maxTaskCount int) error {
	verr := &ValidationError{}

	if strings.TrimSpace(req.Subject) == "" {
		verr.add("subject is required")
	}
	if req.Grade < MinGrade || req.Grade > MaxGrade {
		verr.add(fmt.Sprintf("grade must be between %d and %d", MinGrade, MaxGrade))
	}
	if req.TaskCount <= 0 {
		verr.add("taskCount must be positive")
	} else if maxTaskCount > 0 && req.TaskCount > maxTaskCount {
		verr.add(fmt.Sprintf("taskCount must not exceed %d", maxTaskCount))
	}
	if req.GenerationPercentage < 0 || req.GenerationPercentage > 100 {
		verr.add("generationPercentage must be between 0 and 100")
	}

	if !req.HasTopic() {
		if req.Quarter < 0 || req.Quarter > 4 {
			verr.add("quarter must be between 1 and 4, or 0 when unset")
		}
		if req.Week < 0 {
			verr.add("week must not be negative")
		}
		if req.Week > 0 && req.Quarter == 0 {
			verr.add("week requires quarter")
		}
	}

	if len(req.TaskTypes) == 0 {
		verr.add("taskTypes must not be empty")
	}
	for _, raw := range req.TaskTypes {
		if model.IsAllSentinel(raw) {
			continue
		}
		if _, ok := model.ParseTaskType(raw); !ok {
			verr.add(fmt.Sprintf("unknown task type %q", raw))
		}
	}
	for _, raw := range req.Difficulties {
		if model.IsAllSentinel(raw) {
			continue
		}
		if _, ok := model.ParseDifficulty(raw); !ok {
			verr.add(fmt.Sprintf("unknown difficulty %q", raw))
		}
	}

	return verr.orNil()
}
