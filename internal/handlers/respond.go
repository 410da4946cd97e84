package handlers

import (
	"log"
	"net/http"

	"artstop/internal/apperrors"

	"github.com/gofiber/fiber/v2"
)

// respondError maps an error to the uniform {success:false, message}
// envelope. Unrecognized errors become a generic 500 so internals never
// leak to the client.
func respondError(c *fiber.Ctx, err error) error {
	status := apperrors.StatusCode(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("Unexpected error handling %s %s: %v", c.Method(), c.Path(), err)
		message = "internal server error"
	}
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

// requester pulls the authenticated user id and role out of the request
// context set by the JWT middleware.
func requester(c *fiber.Ctx) (userID, role string) {
	userID, _ = c.Locals("user_id").(string)
	role, _ = c.Locals("role").(string)
	return userID, role
}
