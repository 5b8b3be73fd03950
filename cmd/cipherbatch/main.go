package main

import (
	"log"
	"os"
	"time"

	"github.com/DE-labtory/cipherbatch/cmd/cipherbatch/encrypt"
	initCmd "github.com/DE-labtory/cipherbatch/cmd/cipherbatch/init"
	"github.com/DE-labtory/cipherbatch/cmd/cipherbatch/keygen"
	"github.com/DE-labtory/cipherbatch/cmd/cipherbatch/start"
	"github.com/DE-labtory/cipherbatch/config"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "cipherbatch"
	app.Version = "0.0.1"
	app.Compiled = time.Now()
	app.Usage = "Confidential batch ledger with threshold decryption"
	app.UsageText = "cipherbatch [options] command [command options] [arguments...]"
	app.Authors = []cli.Author{
		{
			Name:  "DE-labtory",
			Email: "de.labtory@gmail.com",
		},
	}
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "use configuration file at FILE_PATH",
			Value: config.Path(),
		},
		cli.BoolFlag{
			Name:  "debug, d",
			Usage: "set debug mode",
		},
	}
	app.Before = func(c *cli.Context) error {
		config.SetPath(c.GlobalString("config"))
		return nil
	}

	app.Commands = []cli.Command{}
	app.Commands = append(app.Commands, initCmd.Cmd())
	app.Commands = append(app.Commands, keygen.Cmd())
	app.Commands = append(app.Commands, encrypt.Cmd())
	app.Commands = append(app.Commands, start.Cmd())

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}
