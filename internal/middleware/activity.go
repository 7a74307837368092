package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dating-api/internal/cache"
)

// ActivityRecorder stores that a user was active.
type ActivityRecorder interface {
	Touch(ctx context.Context, id uuid.UUID) error
}

// ActivityMiddleware updates the caller's last activity once the request
// has been handled. Updates are written at most once per interval per user.
func ActivityMiddleware(recorder ActivityRecorder, marks cache.Marker, interval time.Duration, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		userID, ok := UserID(c)
		if !ok {
			return
		}

		ctx := c.Request.Context()
		fresh, err := marks.Mark(ctx, "activity:"+userID.String(), interval)
		if err != nil {
			logger.WithError(err).Warn("Failed to throttle activity update")
			fresh = true
		}
		if !fresh {
			return
		}

		if err := recorder.Touch(ctx, userID); err != nil {
			logger.WithError(err).WithField("user_id", userID.String()).Warn("Failed to record user activity")
		}
	}
}
