package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seenimoa/quantdesk/api"
	"github.com/seenimoa/quantdesk/internal/datasource"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		host, _ := cmd.Flags().GetString("host")
		if host == "" {
			host = cfg.API.Host
		}
		port, _ := cmd.Flags().GetInt("port")
		if port == 0 {
			port = cfg.API.Port
		}
		news := datasource.NewNews("", logger)
		srv := api.NewServer(cfg, svc, news, logger)
		return srv.ListenAndServe(fmt.Sprintf("%s:%d", host, port))
	},
}

func init() {
	serveCmd.Flags().String("host", "", "listen host (default from config)")
	serveCmd.Flags().Int("port", 0, "listen port (default from config)")
}
