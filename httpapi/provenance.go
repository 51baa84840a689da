package httpapi

import (
	"github.com/labstack/echo/v4"
	"github.com/mileusna/useragent"
	"github.com/tech-arch1tect/otpkit/services/otp"
)

const maxUserAgentLength = 500

// requestContext captures where an issuance request came from. The raw user
// agent is stored with the record; the parsed form only feeds logs.
func requestContext(c echo.Context) otp.RequestContext {
	ua := c.Request().UserAgent()
	if len(ua) > maxUserAgentLength {
		ua = ua[:maxUserAgentLength]
	}

	return otp.RequestContext{
		UserAgent: ua,
		IPAddress: c.RealIP(),
	}
}

// BrowserSummary condenses a user agent header into "Name Version (OS)" for
// log lines and audit trails.
func BrowserSummary(userAgentString string) string {
	if userAgentString == "" {
		return "Unknown Browser"
	}

	ua := useragent.Parse(userAgentString)
	if ua.Name == "" {
		return "Unknown Browser"
	}

	summary := ua.Name
	if ua.Version != "" {
		summary += " " + ua.Version
	}
	if ua.OS != "" {
		summary += " (" + ua.OS + ")"
	}
	return summary
}
