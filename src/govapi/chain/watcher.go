package chain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

var transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// RunTransferWatcher subscribes to the token's Transfer logs over a
// websocket endpoint and forwards them to the sink as market events. The
// subscription is re-established on failure until ctx is cancelled.
func RunTransferWatcher(ctx context.Context, wsURL, tokenAddr string, sink PriceSink, lgr *zap.Logger) {
	token := common.HexToAddress(tokenAddr)
	for {
		if err := watchTransfers(ctx, wsURL, token, sink, lgr); err != nil {
			lgr.Warn("transfer watcher stopped", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Second):
		}
	}
}

func watchTransfers(ctx context.Context, wsURL string, token common.Address, sink PriceSink, lgr *zap.Logger) error {
	eth, err := ethclient.DialContext(ctx, wsURL)
	if err != nil {
		return err
	}
	defer eth.Close()

	logs := make(chan types.Log, 64)
	sub, err := eth.SubscribeFilterLogs(ctx, ethereum.FilterQuery{
		Addresses: []common.Address{token},
		Topics:    [][]common.Hash{{transferTopic}},
	}, logs)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	lgr.Info("watching token transfers", zap.String("token", token.Hex()))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return err
		case lg := <-logs:
			if len(lg.Topics) < 3 {
				continue
			}
			value := new(big.Int).SetBytes(lg.Data)
			err := sink.Emit(ctx, TopicMarket, map[string]any{
				"event": "transfer",
				"from":  common.HexToAddress(lg.Topics[1].Hex()).Hex(),
				"to":    common.HexToAddress(lg.Topics[2].Hex()).Hex(),
				"value": value.String(),
				"tx":    lg.TxHash.Hex(),
			})
			if err != nil {
				lgr.Warn("transfer event emit failed", zap.Error(err))
			}
		}
	}
}
