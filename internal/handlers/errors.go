package handlers

// ErrorResponse is the JSON body of an echo.HTTPError.
type ErrorResponse struct {
	Message string `json:"message"`
}
