package init

import (
	"path/filepath"

	"github.com/DE-labtory/cipherbatch/config"
	"github.com/kyokomi/emoji"
	"github.com/urfave/cli"
)

func Cmd() cli.Command {
	return cli.Command{
		Name:      "init",
		Usage:     "Initialize cipherbatch configuration",
		UsageText: "cipherbatch init [FILE_PATH]",
		Action: func(c *cli.Context) error {
			return initCipherbatch(c.Args().First())
		},
	}
}

func initCipherbatch(from string) error {
	if err := config.Init(from); err != nil {
		emoji.Printf(":broken_heart: initialize failed with error: %s\n", err)
		return err
	}
	emoji.Printf(":beer: successfully initialized at %s\n", filepath.Dir(config.Path()))
	return nil
}
