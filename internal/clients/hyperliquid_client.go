package clients

import (
	"context"
	"crypto/ecdsa"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	hyperliquid "github.com/sonirico/go-hyperliquid"
)

// HyperliquidClient wraps the SDK exchange. whalewatch only reads public
// info endpoints, so an empty key gets a throwaway signer.
type HyperliquidClient struct {
	exchange    *hyperliquid.Exchange
	accountAddr string
}

func NewHyperliquidClient(ctx context.Context, privateKeyHex string, baseURL string) (*HyperliquidClient, error) {
	privateKey, err := signerKey(privateKeyHex)
	if err != nil {
		return nil, err
	}

	accountAddr, err := addressOf(privateKey)
	if err != nil {
		return nil, err
	}

	// build exchange; Info and SpotMeta are fetched lazily by the SDK
	ex := hyperliquid.NewExchange(
		ctx,
		privateKey,
		baseURL,
		nil,
		"",
		accountAddr,
		nil,
	)

	return &HyperliquidClient{exchange: ex, accountAddr: accountAddr}, nil
}

func signerKey(privateKeyHex string) (*ecdsa.PrivateKey, error) {
	key := strings.TrimSpace(privateKeyHex)
	if key == "" {
		k, err := crypto.GenerateKey()
		return k, errors.Wrap(err, "generate ephemeral key")
	}
	key = strings.TrimPrefix(strings.TrimPrefix(key, "0x"), "0X")

	k, err := crypto.HexToECDSA(key)
	if err != nil {
		return nil, errors.Wrap(err, "parse hyperliquid private key")
	}
	return k, nil
}

func addressOf(privateKey *ecdsa.PrivateKey) (string, error) {
	pubECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return "", errors.New("error casting public key to ECDSA")
	}
	return crypto.PubkeyToAddress(*pubECDSA).Hex(), nil
}

func (c *HyperliquidClient) Info() *hyperliquid.Info { return c.exchange.Info() }
func (c *HyperliquidClient) AccountAddress() string  { return c.accountAddr }
