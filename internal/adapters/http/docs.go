package http

import (
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
)

const docsPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>TshwaneBus API</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
  <style>body{margin:0;background:#fafafa}</style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: '/docs/openapi.yaml',
      dom_id: '#swagger-ui',
      deepLinking: true,
      presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
      layout: 'BaseLayout',
    });
  </script>
</body>
</html>`

// specCandidates covers running from the repo root and from cmd/api.
var specCandidates = []string{
	filepath.Join("api", "openapi.yaml"),
	filepath.Join("..", "..", "api", "openapi.yaml"),
}

func serveDocsPage(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/html; charset=utf-8")
	return c.SendString(docsPage)
}

func serveOpenAPISpec(c *fiber.Ctx) error {
	for _, path := range specCandidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		c.Set(fiber.HeaderContentType, "application/yaml")
		return c.Send(data)
	}
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "openapi.yaml not found"})
}

// SetupDocs mounts Swagger UI at /docs, backed by the raw spec at
// /docs/openapi.yaml.
func SetupDocs(app *fiber.App) {
	app.Get("/docs", serveDocsPage)
	app.Get("/docs/openapi.yaml", serveOpenAPISpec)
}
