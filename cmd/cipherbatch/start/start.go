package start

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/DE-labtory/cipherbatch/api"
	"github.com/DE-labtory/cipherbatch/config"
	"github.com/DE-labtory/cipherbatch/core"
	"github.com/DE-labtory/cipherbatch/log"
	kitlog "github.com/go-kit/kit/log"
	"github.com/kyokomi/emoji"
	"github.com/urfave/cli"
)

func Cmd() cli.Command {
	return cli.Command{
		Name:      "start",
		Usage:     "Start the ledger node and its HTTP api",
		UsageText: "cipherbatch start",
		Action: func(c *cli.Context) error {
			return startCipherbatch(c.GlobalBool("debug"))
		},
	}
}

func startCipherbatch(debug bool) error {
	conf := config.Get()
	if debug {
		conf.Log.Level = "debug"
	}

	node, err := core.New(conf)
	if err != nil {
		emoji.Printf(":broken_heart: failed to start node: %s\n", err)
		return err
	}
	defer node.Close()
	node.Run()

	httpLogger := kitlog.With(log.Logger(), "component", "http")
	server := &http.Server{
		Addr:    conf.Api.Address,
		Handler: api.NewApiHandler(node.Ledger(), node.Store(), node.Events(), node.Registry(), httpLogger),
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		httpLogger.Log("message", "shutting down")
		server.Close()
	}()

	emoji.Printf(":rocket: cipherbatch started, api listening on %s\n", conf.Api.Address)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		httpLogger.Log("message", "http server closed", "err", err)
		return err
	}
	return nil
}
