package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	_ "embed"

	"github.com/cenkalti/backoff"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	ecommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	etypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"

	. "gitlab.com/badgerdao/settsim/test/simulation/pkg/types"
)

////////////////////////////////////////////////////////////////////////////////////////
// Config
////////////////////////////////////////////////////////////////////////////////////////

const ContractGasLimit = 3000000

// DefaultReceiptTimeout bounds the wait for a transaction to be mined.
const DefaultReceiptTimeout = 30 * time.Second

// ErrReverted is returned when a transaction is mined with a failed status.
var ErrReverted = errors.New("transaction reverted")

////////////////////////////////////////////////////////////////////////////////////////
// Init
////////////////////////////////////////////////////////////////////////////////////////

//go:embed abi/erc20.json
var erc20ABIJson string

//go:embed abi/sett.json
var settABIJson string

//go:embed abi/strategy.json
var strategyABIJson string

//go:embed abi/guestlist.json
var guestListABIJson string

//go:embed abi/router.json
var routerABIJson string

//go:embed abi/pair.json
var pairABIJson string

//go:embed abi/digg.json
var diggABIJson string

var erc20ABI, settABI, strategyABI, guestListABI, routerABI, pairABI, diggABI abi.ABI

func init() {
	for _, a := range []struct {
		name string
		raw  string
		dst  *abi.ABI
	}{
		{"erc20", erc20ABIJson, &erc20ABI},
		{"sett", settABIJson, &settABI},
		{"strategy", strategyABIJson, &strategyABI},
		{"guestlist", guestListABIJson, &guestListABI},
		{"router", routerABIJson, &routerABI},
		{"pair", pairABIJson, &pairABI},
		{"digg", diggABIJson, &diggABI},
	} {
		parsed, err := abi.JSON(strings.NewReader(a.raw))
		if err != nil {
			panic(fmt.Errorf("failed to parse %s contract abi: %w", a.name, err))
		}
		*a.dst = parsed
	}
}

////////////////////////////////////////////////////////////////////////////////////////
// Client
////////////////////////////////////////////////////////////////////////////////////////

// Client talks JSON-RPC to a local test node. Transactions are sent with
// eth_sendTransaction, so the sender must be unlocked or impersonated.
type Client struct {
	rpc *rpc.Client
	eth *ethclient.Client
	log zerolog.Logger

	receiptTimeout time.Duration
}

var _ Chain = &Client{}

// Dial connects to the test node at host.
func Dial(ctx context.Context, host string, log zerolog.Logger) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("fail to dial rpc host(%s): %w", host, err)
	}
	return NewClient(rpcClient, log), nil
}

func NewClient(rpcClient *rpc.Client, log zerolog.Logger) *Client {
	return &Client{
		rpc:            rpcClient,
		eth:            ethclient.NewClient(rpcClient),
		log:            log.With().Str("module", "evm").Logger(),
		receiptTimeout: DefaultReceiptTimeout,
	}
}

// SetReceiptTimeout overrides DefaultReceiptTimeout.
func (c *Client) SetReceiptTimeout(d time.Duration) {
	c.receiptTimeout = d
}

func (c *Client) Close() {
	c.rpc.Close()
}

////////////////////////////////////////////////////////////////////////////////////////
// Chain
////////////////////////////////////////////////////////////////////////////////////////

func (c *Client) Accounts(ctx context.Context) ([]ecommon.Address, error) {
	var accounts []ecommon.Address
	if err := c.rpc.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, fmt.Errorf("fail to list accounts: %w", err)
	}
	return accounts, nil
}

func (c *Client) CodeAt(ctx context.Context, address ecommon.Address) ([]byte, error) {
	code, err := c.eth.CodeAt(ctx, address, nil) // nil for latest block
	if err != nil {
		return nil, fmt.Errorf("fail to get code for %s: %w", address, err)
	}
	return code, nil
}

// Impersonate unlocks the address on anvil, falling back to the hardhat method.
func (c *Client) Impersonate(ctx context.Context, address ecommon.Address) error {
	err := c.rpc.CallContext(ctx, nil, "anvil_impersonateAccount", address)
	if err == nil {
		return nil
	}
	c.log.Debug().Err(err).Msg("anvil impersonation unavailable, trying hardhat")
	if err = c.rpc.CallContext(ctx, nil, "hardhat_impersonateAccount", address); err != nil {
		return fmt.Errorf("fail to impersonate %s: %w", address, err)
	}
	return nil
}

func (c *Client) Sleep(ctx context.Context, d time.Duration) error {
	var result interface{}
	if err := c.rpc.CallContext(ctx, &result, "evm_increaseTime", int64(d/time.Second)); err != nil {
		return fmt.Errorf("fail to increase time by %s: %w", d, err)
	}
	return nil
}

func (c *Client) Mine(ctx context.Context, blocks uint64) error {
	for i := uint64(0); i < blocks; i++ {
		if err := c.rpc.CallContext(ctx, nil, "evm_mine"); err != nil {
			return fmt.Errorf("fail to mine block: %w", err)
		}
	}
	return nil
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	height, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("fail to get block number: %w", err)
	}
	return height, nil
}

func (c *Client) Token(address ecommon.Address) Token {
	return &erc20{contract: c.contract(address, erc20ABI)}
}

////////////////////////////////////////////////////////////////////////////////////////
// Calls
////////////////////////////////////////////////////////////////////////////////////////

// call performs a read-only contract call and unpacks the outputs.
func (c *Client) call(ctx context.Context, to ecommon.Address, contractABI abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("fail to pack %s call: %w", method, err)
	}

	result, err := c.eth.CallContract(ctx, ethereum.CallMsg{
		To:   &to,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("fail to call %s on %s: %w", method, to, err)
	}

	out, err := contractABI.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("fail to unpack %s result: %w", method, err)
	}
	return out, nil
}

type sendTxArgs struct {
	From ecommon.Address `json:"from"`
	To   ecommon.Address `json:"to"`
	Gas  hexutil.Uint64  `json:"gas"`
	Data hexutil.Bytes   `json:"data"`
}

// send submits a contract transaction from an unlocked account and waits for it to be
// mined. A failed receipt is returned as ErrReverted with the decoded reason.
func (c *Client) send(ctx context.Context, from, to ecommon.Address, contractABI abi.ABI, method string, args ...interface{}) error {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("fail to pack %s call: %w", method, err)
	}

	var hash ecommon.Hash
	err = c.rpc.CallContext(ctx, &hash, "eth_sendTransaction", sendTxArgs{
		From: from,
		To:   to,
		Gas:  hexutil.Uint64(ContractGasLimit),
		Data: data,
	})
	if err != nil {
		return fmt.Errorf("fail to send %s to %s: %w", method, to, revertError(err))
	}

	receipt, err := c.waitReceipt(ctx, hash)
	if err != nil {
		return fmt.Errorf("fail to get %s receipt: %w", method, err)
	}

	c.log.Debug().
		Str("method", method).
		Stringer("to", to).
		Stringer("from", from).
		Stringer("tx", hash).
		Uint64("status", receipt.Status).
		Msg("transaction mined")

	if receipt.Status != etypes.ReceiptStatusSuccessful {
		// replay against the parent block to recover the revert reason
		parent := new(big.Int).Sub(receipt.BlockNumber, big.NewInt(1))
		_, callErr := c.eth.CallContract(ctx, ethereum.CallMsg{
			From: from,
			To:   &to,
			Gas:  ContractGasLimit,
			Data: data,
		}, parent)
		if callErr != nil {
			return fmt.Errorf("%s(%s): %w", method, hash, revertError(callErr))
		}
		return fmt.Errorf("%s(%s): %w", method, hash, ErrReverted)
	}
	return nil
}

func (c *Client) waitReceipt(ctx context.Context, hash ecommon.Hash) (*etypes.Receipt, error) {
	var receipt *etypes.Receipt

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = c.receiptTimeout

	err := backoff.Retry(func() error {
		var err error
		receipt, err = c.eth.TransactionReceipt(ctx, hash)
		return err
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// revertError converts a node error carrying revert data into ErrReverted with the
// decoded reason. Other errors are returned unchanged.
func revertError(err error) error {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return err
	}
	raw, ok := dataErr.ErrorData().(string)
	if !ok {
		return err
	}
	data, decodeErr := hexutil.Decode(raw)
	if decodeErr != nil {
		return err
	}
	return decodeRevert(data, err)
}

func decodeRevert(data []byte, fallback error) error {
	reason, err := abi.UnpackRevert(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReverted, fallback)
	}
	return fmt.Errorf("%w: %s", ErrReverted, reason)
}
