package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const privacyPolicyHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Privacy Policy</title>
</head>
<body>
<h1>Privacy Policy</h1>
<p>This page explains how our Messenger assistant handles your information.</p>
<h2>Information We Collect</h2>
<p>We receive the messages, attachments and button clicks you send to our page, together with your page-scoped sender id.</p>
<h2>How We Use Information</h2>
<p>Your messages are used only to generate replies and to keep the context of your conversation with the page.</p>
<h2>Data Sharing</h2>
<p>Message content is sent to our AI provider to generate replies. We do not sell or share your data with anyone else.</p>
<h2>Data Security</h2>
<p>Conversation history is stored in access-controlled storage and can be deleted on request.</p>
</body>
</html>
`

// PrivacyHandler serves the public privacy policy page.
type PrivacyHandler struct{}

func NewPrivacyHandler() *PrivacyHandler {
	return &PrivacyHandler{}
}

func (h *PrivacyHandler) Register(e *echo.Echo) {
	e.GET("/privacy", h.Privacy)
}

func (h *PrivacyHandler) Privacy(c echo.Context) error {
	return c.HTML(http.StatusOK, privacyPolicyHTML)
}
