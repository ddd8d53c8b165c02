package main

import (
	"github.com/spf13/cobra"

	"stockcrew/internal/bootstrap"
)

func serveCMD() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web front end",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := bootstrap.NewContainer()
			if err := c.Init(); err != nil {
				return err
			}
			if addr != "" {
				c.Config.HTTP.Addr = addr
			}
			if err := c.InitHTTP(); err != nil {
				return err
			}
			if err := c.Start(); err != nil {
				return err
			}

			select {
			case <-cmd.Context().Done():
				c.Log.Info("Shutdown signal received")
			case <-c.Context.Done():
			}
			c.Shutdown()
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides HTTP_ADDR")
	return cmd
}
