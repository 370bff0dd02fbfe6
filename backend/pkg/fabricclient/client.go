package fabricclient

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperledger/fabric-sdk-go/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-sdk-go/pkg/core/config"
	"github.com/hyperledger/fabric-sdk-go/pkg/gateway"
)

const walletLabel = "appUser"

// Options locate the connection profile, the channel and contract, and the
// identity to enroll into the file-system wallet on first use.
type Options struct {
	ConfigPath   string
	ChannelName  string
	ContractName string
	MSPID        string
	CertPath     string
	KeyPath      string
	WalletDir    string
}

// contract is the subset of *gateway.Contract the client uses.
type contract interface {
	SubmitTransaction(name string, args ...string) ([]byte, error)
	EvaluateTransaction(name string, args ...string) ([]byte, error)
	RegisterEvent(eventFilter string) (fab.Registration, <-chan *fab.CCEvent, error)
	Unregister(registration fab.Registration)
}

type Client struct {
	gw       *gateway.Gateway
	contract contract
}

func NewClient(opts Options) (*Client, error) {
	walletDir := opts.WalletDir
	if walletDir == "" {
		walletDir = "wallet"
	}
	wallet, err := gateway.NewFileSystemWallet(walletDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	if !wallet.Exists(walletLabel) {
		err = populateWallet(wallet, opts.MSPID, opts.CertPath, opts.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to populate wallet: %w", err)
		}
	}

	gw, err := gateway.Connect(
		gateway.WithConfig(config.FromFile(filepath.Clean(opts.ConfigPath))),
		gateway.WithIdentity(wallet, walletLabel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to gateway: %w", err)
	}

	network, err := gw.GetNetwork(opts.ChannelName)
	if err != nil {
		gw.Close()
		return nil, fmt.Errorf("failed to get network: %w", err)
	}

	return &Client{
		gw:       gw,
		contract: network.GetContract(opts.ContractName),
	}, nil
}

func (c *Client) SubmitTransaction(name string, args ...string) ([]byte, error) {
	return c.contract.SubmitTransaction(name, args...)
}

func (c *Client) EvaluateTransaction(name string, args ...string) ([]byte, error) {
	return c.contract.EvaluateTransaction(name, args...)
}

func (c *Client) Close() {
	if c.gw != nil {
		c.gw.Close()
	}
}

func populateWallet(wallet *gateway.Wallet, mspID, certPath, keyPath string) error {
	cert, err := os.ReadFile(filepath.Clean(certPath))
	if err != nil {
		return err
	}

	key, err := os.ReadFile(filepath.Clean(keyPath))
	if err != nil {
		return err
	}

	identity := gateway.NewX509Identity(mspID, string(cert), string(key))

	return wallet.Put(walletLabel, identity)
}
