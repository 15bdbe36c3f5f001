package http

import (
	"runtime/debug"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/gatekeeper/internal/observability"
	apperrors "github.com/spec-kit/gatekeeper/pkg/util"
)

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics) {
	app.Use(errorHandlingMiddleware(logger))
	app.Use(observability.RequestLogger(logger, metrics))
}

func errorHandlingMiddleware(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				flowErr := apperrors.ToFlowError(err)
				logger.Error("request failed", zap.Error(flowErr))
				c.Status(fiber.StatusInternalServerError)
				_ = c.JSON(fiber.Map{"error": fiber.Map{
					"code":    flowErr.Code,
					"message": flowErr.Message,
				}})
				err = nil
			}
		}()
		return c.Next()
	}
}
