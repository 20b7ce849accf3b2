// internal/handlers/web/landing.go
package web

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var landingTemplate = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.AppName}}</title>
</head>
<body>
<main>
<h1>{{.AppName}}</h1>
<p>Customer records for the LuckyLogic team.</p>
<ul>
<li><code>POST /api/v1/auth/login</code> to sign in</li>
<li><code>GET /api/v1/dashboard</code> for the overview</li>
<li><code>GET /api/v1/customers</code> to browse customers</li>
</ul>
<p>Or use <code>crmctl login</code> from a terminal.</p>
</main>
</body>
</html>
`))

type LandingHandler struct {
	appName string
	logger  *zap.Logger
}

func NewLandingHandler(appName string, logger *zap.Logger) *LandingHandler {
	return &LandingHandler{appName: appName, logger: logger}
}

// Index renders the landing page.
func (h *LandingHandler) Index(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := landingTemplate.Execute(c.Writer, struct{ AppName string }{h.appName}); err != nil {
		h.logger.Error("failed to render landing page", zap.Error(err))
	}
}
