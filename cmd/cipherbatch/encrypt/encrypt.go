package encrypt

import (
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/DE-labtory/cipherbatch"
	"github.com/DE-labtory/cipherbatch/config"
	"github.com/DE-labtory/cipherbatch/tpke"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/kyokomi/emoji"
	"github.com/urfave/cli"
)

func Cmd() cli.Command {
	return cli.Command{
		Name:      "encrypt",
		Usage:     "Encrypt a potential value under the configured public key set",
		UsageText: "cipherbatch encrypt VALUE",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.ShowCommandHelp(c, "encrypt")
			}
			return encrypt(c.Args().First())
		},
	}
}

func newEncryptor(publicKeySet string) (cipherbatch.Encryptor, error) {
	if publicKeySet == "" {
		return &tpke.MockTpke{}, nil
	}
	pks, err := hexutil.Decode(publicKeySet)
	if err != nil {
		return nil, err
	}
	return tpke.NewEncryptor(pks)
}

func seal(publicKeySet string, value uint64) (string, cipherbatch.Handle, error) {
	enc, err := newEncryptor(publicKeySet)
	if err != nil {
		return "", cipherbatch.Handle{}, err
	}
	ct, err := enc.Encrypt(value)
	if err != nil {
		return "", cipherbatch.Handle{}, err
	}
	return base64.StdEncoding.EncodeToString(ct), cipherbatch.HandleOf(ct), nil
}

func encrypt(arg string) error {
	value, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		err = fmt.Errorf("value must be an unsigned integer: %s", arg)
		emoji.Printf(":broken_heart: %s\n", err)
		return err
	}

	conf := config.Get()
	if conf.Tpke.PublicKeySet == "" {
		emoji.Println(":warning: no public key set configured, the ciphertext is NOT confidential")
	}
	ct, h, err := seal(conf.Tpke.PublicKeySet, value)
	if err != nil {
		emoji.Printf(":broken_heart: encryption failed with error: %s\n", err)
		return err
	}

	emoji.Printf(":lock: ciphertext: %s\n", ct)
	emoji.Printf(":id: handle: %s\n", h)
	return nil
}
