// Package chain reads token state from the ledger: balances for the voting
// weight oracle, pool prices for the market tracker and Transfer logs for
// market events. Everything here is read-only.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}
]`

const routerABI = `[
	{"constant":true,"inputs":[{"name":"amountIn","type":"uint256"},{"name":"path","type":"address[]"}],"name":"getAmountsOut","outputs":[{"name":"amounts","type":"uint256[]"}],"type":"function"}
]`

// Pricing path hops on BSC.
var (
	wbnbAddress = common.HexToAddress("0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c")
	busdAddress = common.HexToAddress("0xe9e7cea3dedca5984780bafc599bd69add087d56")
)

type Client struct {
	eth    *ethclient.Client
	token  common.Address
	router common.Address
	erc20  abi.ABI
	pcs    abi.ABI
}

func Dial(ctx context.Context, rpcURL, tokenAddr, routerAddr string) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain dial: %w", err)
	}
	erc20, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, err
	}
	pcs, err := abi.JSON(strings.NewReader(routerABI))
	if err != nil {
		return nil, err
	}
	return &Client{
		eth:    eth,
		token:  common.HexToAddress(tokenAddr),
		router: common.HexToAddress(routerAddr),
		erc20:  erc20,
		pcs:    pcs,
	}, nil
}

func (c *Client) Close() {
	c.eth.Close()
}

// Balance returns the current token balance of addr.
func (c *Client) Balance(ctx context.Context, addr string) (*big.Int, error) {
	input, err := c.erc20.Pack("balanceOf", common.HexToAddress(addr))
	if err != nil {
		return nil, err
	}
	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.token, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("balanceOf %s: %w", addr, err)
	}
	res, err := c.erc20.Unpack("balanceOf", out)
	if err != nil {
		return nil, err
	}
	bal, ok := res[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf %s: unexpected return type %T", addr, res[0])
	}
	return bal, nil
}

// TokenPrice quotes amountIn tokens through the token -> WBNB -> BUSD path
// and returns the BUSD leg.
func (c *Client) TokenPrice(ctx context.Context, amountIn *big.Int) (*big.Int, error) {
	path := []common.Address{c.token, wbnbAddress, busdAddress}
	input, err := c.pcs.Pack("getAmountsOut", amountIn, path)
	if err != nil {
		return nil, err
	}
	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.router, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("getAmountsOut: %w", err)
	}
	res, err := c.pcs.Unpack("getAmountsOut", out)
	if err != nil {
		return nil, err
	}
	amounts, ok := res[0].([]*big.Int)
	if !ok || len(amounts) != len(path) {
		return nil, fmt.Errorf("getAmountsOut: unexpected return %T", res[0])
	}
	return amounts[len(amounts)-1], nil
}

// IsValidAddress reports whether addr parses as a hex ledger address.
func IsValidAddress(addr string) bool {
	return common.IsHexAddress(addr)
}
