// Package webui serves a small read-mostly web front end over the chat
// client: the conversation list, message threads, and a send endpoint.
package webui

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/moatasem1234/madrasati/internal/chat"
	"github.com/moatasem1234/madrasati/internal/session"
)

//go:embed templates/*.html
var templatesFS embed.FS

// StartOpts holds configuration for the web UI server.
type StartOpts struct {
	Chat     *chat.Client
	Sessions *session.Store
	Port     int
	Out      io.Writer
	Log      zerolog.Logger
}

// Start launches the web UI. It blocks until ctx is cancelled, then shuts
// down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Chat == nil {
		return fmt.Errorf("webui: chat client is required")
	}
	if opts.Sessions == nil {
		return fmt.Errorf("webui: session store is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8787
	}

	router, err := newRouter(opts.Chat, opts.Sessions)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", opts.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(context.Background()); err != nil {
			opts.Log.Warn().Err(err).Msg("web ui shutdown")
		}
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Web UI running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("webui: %w", err)
	}
	return nil
}

// newRouter builds the Gin engine with templates and routes attached.
func newRouter(client *chat.Client, sessions *session.Store) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("webui: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	registerRoutes(router, client, sessions)
	return router, nil
}

// parseTemplates loads the embedded HTML templates.
func parseTemplates() (*template.Template, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}
