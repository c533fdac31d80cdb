package logger

// LogRequest logs HTTP request information
func LogRequest(method, url string, statusCode int, durationMs float64) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": durationMs,
	}

	switch {
	case statusCode >= 500:
		GetLogger().ErrorWithFields("HTTP request server error", fields)
	case statusCode >= 400:
		GetLogger().WarnWithFields("HTTP request client error", fields)
	default:
		GetLogger().DebugWithFields("HTTP request completed", fields)
	}
}

// LogDownload logs a per-file download attempt
func LogDownload(board, remoteName, path string, success bool, err error) {
	fields := map[string]interface{}{
		"board":   board,
		"file":    remoteName,
		"path":    path,
		"success": success,
	}

	logger := GetLogger().WithFields(fields)

	if err != nil {
		logger.WithError(err).Error("Download failed")
	} else if success {
		logger.Info("Download completed")
	} else {
		logger.Warn("Download skipped")
	}
}

// LogThreadSync logs the outcome of a thread metadata sync
func LogThreadSync(board, thread, outcome string) {
	GetLogger().WithFields(map[string]interface{}{
		"board":   board,
		"thread":  thread,
		"outcome": outcome,
	}).Info("Thread sync finished")
}
