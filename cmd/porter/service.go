package main

import (
	"context"
	"fmt"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

// program adapts the application to the system service manager.
type program struct {
	cfgPath string
	cancel  context.CancelFunc
	done    chan error
}

// Start implements service.Interface. It must not block.
func (p *program) Start(service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() {
		p.done <- runApp(ctx, p.cfgPath)
	}()
	return nil
}

// Stop implements service.Interface.
func (p *program) Stop(service.Service) error {
	p.cancel()
	return <-p.done
}

func newService(cfgPath string) (service.Service, error) {
	arguments := []string{"service", "run"}
	if cfgPath != "" {
		arguments = append(arguments, "-c", cfgPath)
	}
	return service.New(&program{cfgPath: cfgPath}, &service.Config{
		Name:        "porter",
		DisplayName: "Porter support assistant",
		Description: "Chat support assistant with conversation memory and human escalation",
		Arguments:   arguments,
	})
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Run or manage porter as a system service",
	}

	var cfgPath string
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to configuration file")

	run := &cobra.Command{
		Use:   "run",
		Short: "Run under the service manager",
		RunE: func(_ *cobra.Command, _ []string) error {
			svc, err := newService(cfgPath)
			if err != nil {
				return err
			}
			return svc.Run()
		},
	}
	cmd.AddCommand(run)

	for _, action := range []string{"install", "uninstall", "start", "stop", "restart"} {
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("%s the porter system service", action),
			RunE: func(c *cobra.Command, _ []string) error {
				svc, err := newService(cfgPath)
				if err != nil {
					return err
				}
				if err := service.Control(svc, c.Use); err != nil {
					return err
				}
				fmt.Printf("Service %s: done\n", c.Use)
				return nil
			},
		})
	}

	return cmd
}
