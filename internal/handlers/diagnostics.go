package handlers

import (
	"net/http"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"wastejobs-backend/internal/services/directions"
	"wastejobs-backend/pkg/utils"
)

// DiagnosticLog represents a diagnostic log from the web or mobile client
type DiagnosticLog struct {
	Timestamp string                 `json:"timestamp"`
	Context   string                 `json:"context" validate:"max=200"`
	Level     string                 `json:"level" validate:"omitempty,oneof=DEBUG INFO WARNING ERROR"`
	Message   string                 `json:"message" validate:"required,max=4000"`
	Data      map[string]interface{} `json:"data"`
	Platform  string                 `json:"platform" validate:"max=50"`
}

func (d DiagnosticLog) zapLevel() zapcore.Level {
	switch d.Level {
	case "ERROR":
		return zapcore.ErrorLevel
	case "WARNING":
		return zapcore.WarnLevel
	case "DEBUG":
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// ReceiveDiagnosticLog handles POST /api/logs/diagnostic
func ReceiveDiagnosticLog() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var entry DiagnosticLog
		if err := decodeBody(r, &entry); err != nil {
			writeServiceError(w, r, err)
			return
		}

		fields := []zap.Field{
			zap.String("platform", entry.Platform),
			zap.String("context", entry.Context),
			zap.String("client_timestamp", entry.Timestamp),
		}
		if len(entry.Data) > 0 {
			fields = append(fields, zap.Any("data", entry.Data))
		}
		if ce := zap.L().Check(entry.zapLevel(), "client diagnostic: "+entry.Message); ce != nil {
			ce.Write(fields...)
		}

		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "received"})
	}
}

// RouteCacheStats handles GET /api/diagnostics/route-cache
func RouteCacheStats(cache *directions.RouteCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cache == nil {
			utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"enabled": false})
			return
		}
		stats := cache.GetStats()
		stats["enabled"] = true
		utils.RespondJSON(w, http.StatusOK, stats)
	}
}
