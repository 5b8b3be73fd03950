package keygen

import (
	"encoding/hex"
	"fmt"

	"github.com/DE-labtory/cipherbatch/config"
	"github.com/DE-labtory/cipherbatch/tpke"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/kyokomi/emoji"
	"github.com/urfave/cli"
)

func Cmd() cli.Command {
	return cli.Command{
		Name:      "keygen",
		Usage:     "Generate threshold key shares and oracle signer keys",
		UsageText: "cipherbatch keygen [--threshold N] [--participants N] [--signers N] [--write]",
		Flags: []cli.Flag{
			cli.IntFlag{
				Name:  "threshold",
				Usage: "any threshold+1 key shares can decrypt",
				Value: 2,
			},
			cli.IntFlag{
				Name:  "participants",
				Usage: "number of key shares",
				Value: 4,
			},
			cli.IntFlag{
				Name:  "signers",
				Usage: "number of oracle signer keys",
				Value: 1,
			},
			cli.BoolFlag{
				Name:  "write",
				Usage: "store the generated keys in the configuration file",
			},
		},
		Action: func(c *cli.Context) error {
			return keygen(c.Int("threshold"), c.Int("participants"), c.Int("signers"), c.Bool("write"))
		},
	}
}

type keys struct {
	tpke       config.Tpke
	signerKeys []string
}

func generate(threshold, participants, signers int) (*keys, error) {
	if signers < 1 {
		return nil, fmt.Errorf("at least one signer is required, got %d", signers)
	}
	keySet, err := tpke.Setup(threshold, participants)
	if err != nil {
		return nil, err
	}

	k := &keys{
		tpke: config.Tpke{
			PublicKeySet: hexutil.Encode(keySet.PublicKeySet()),
			SecretShares: make([]string, 0, participants),
			Threshold:    threshold,
		},
		signerKeys: make([]string, 0, signers),
	}
	for _, share := range keySet.SecretShares() {
		k.tpke.SecretShares = append(k.tpke.SecretShares, hexutil.Encode(share[:]))
	}
	for i := 0; i < signers; i++ {
		key, err := crypto.GenerateKey()
		if err != nil {
			return nil, err
		}
		k.signerKeys = append(k.signerKeys, hex.EncodeToString(crypto.FromECDSA(key)))
	}
	return k, nil
}

func keygen(threshold, participants, signers int, write bool) error {
	k, err := generate(threshold, participants, signers)
	if err != nil {
		emoji.Printf(":broken_heart: key generation failed with error: %s\n", err)
		return err
	}

	emoji.Printf(":key: public key set: %s\n", k.tpke.PublicKeySet)
	for i, share := range k.tpke.SecretShares {
		emoji.Printf(":closed_lock_with_key: secret share %d: %s\n", i, share)
	}
	for i, key := range k.signerKeys {
		emoji.Printf(":memo: signer %d: %s\n", i, key)
	}

	if !write {
		return nil
	}

	conf := config.Get()
	conf.Tpke = k.tpke
	conf.Oracle.SignerKeys = k.signerKeys
	conf.Oracle.SignerThreshold = len(k.signerKeys)
	if err := config.Save(conf); err != nil {
		emoji.Printf(":broken_heart: failed to save keys: %s\n", err)
		return err
	}
	emoji.Printf(":beer: keys saved at %s\n", config.Path())
	return nil
}
