// Package stacks models the Stacks chain collaborator: network parameters,
// token-transfer serialization and signing, and the node HTTP client.
package stacks

import "fmt"

// MicroStxPerStx converts the caller-facing whole-STX denomination into the
// chain's base unit. All monetary arithmetic stays in integers.
const MicroStxPerStx uint64 = 1_000_000

const (
	mainnetAddressVersion byte = 22 // "SP..." addresses
	testnetAddressVersion byte = 26 // "ST..." addresses

	mainnetChainId uint32 = 0x00000001
	testnetChainId uint32 = 0x80000000
)

type Network struct {
	Name           string
	NodeURL        string
	AddressVersion byte
	ChainId        uint32
}

func Mainnet(nodeURL string) Network {
	return Network{
		Name:           "mainnet",
		NodeURL:        nodeURL,
		AddressVersion: mainnetAddressVersion,
		ChainId:        mainnetChainId,
	}
}

func Testnet(nodeURL string) Network {
	return Network{
		Name:           "testnet",
		NodeURL:        nodeURL,
		AddressVersion: testnetAddressVersion,
		ChainId:        testnetChainId,
	}
}

func NetworkByName(name string, nodeURL string) (Network, error) {
	switch name {
	case "mainnet":
		return Mainnet(nodeURL), nil
	case "testnet":
		return Testnet(nodeURL), nil
	default:
		return Network{}, fmt.Errorf("unknown stacks network %q", name)
	}
}
