package middleware

import (
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/wisdom/internal/queue"
	"github.com/OFFIS-RIT/wisdom/pkg/store"
	"github.com/OFFIS-RIT/wisdom/pkg/summary"
)

type AppUser struct {
	UserID      string
	Role        string
	Permissions []string
}

// App carries the process-wide dependencies of the handlers. Queue, S3 and
// KeyFunc are optional; routes that need a missing one answer 503.
type App struct {
	Store   store.SnapshotStore
	Queue   queue.Publisher
	S3      *s3.Client
	KeyFunc jwt.Keyfunc

	MasterAPIKey   string
	MasterUserID   string
	MasterUserRole string

	// DecayFactor applies to requests that carry none.
	DecayFactor *float64
	Summary     summary.Options
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}
