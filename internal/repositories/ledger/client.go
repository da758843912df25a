package ledger

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/misterplus/btdex/internal/escrow"
	"github.com/misterplus/btdex/internal/interfaces"
	"github.com/misterplus/btdex/internal/lib"
)

var (
	ErrNodeRequest  = errors.New("ledger node request failed")
	ErrNodeResponse = errors.New("cannot decode ledger node response")
)

const discoveryPageSize = 50

// machine data layout of the escrow contract: twelve little-endian longs
// in field declaration order
const (
	dataFeeAccount = iota
	dataArbitrator1
	dataArbitrator2
	dataOfferType
	dataAccountHash
	dataState
	dataRate
	dataPauseTimeout
	dataAmount
	dataSecurity
	dataNonce
	dataTaker

	machineDataLongs = 12
)

// NodeClient talks to a ledger node over its HTTP JSON API. Transient
// failures are retried up to maxReconnects times within a single call.
type NodeClient struct {
	// config
	baseURL       string
	maxReconnects int

	// deps
	httpClient *http.Client
	log        interfaces.ILogger
}

func NewNodeClient(nodeAddress string, requestTimeout time.Duration, maxReconnects int, log interfaces.ILogger) *NodeClient {
	return &NodeClient{
		baseURL:       strings.TrimSuffix(nodeAddress, "/"),
		maxReconnects: maxReconnects,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		log: log,
	}
}

func (c *NodeClient) GetLatestBlock(ctx context.Context) (Block, error) {
	var res struct {
		Blocks []blockJSON `json:"blocks"`
		errorJSON
	}
	err := c.get(ctx, url.Values{
		"requestType": {"getBlocks"},
		"firstIndex":  {"0"},
		"lastIndex":   {"0"},
	}, &res)
	if err != nil {
		return Block{}, err
	}
	if res.ErrorDescription != "" || len(res.Blocks) == 0 {
		return Block{}, lib.WrapError(ErrNodeResponse, fmt.Errorf("getBlocks: %s", res.ErrorDescription))
	}
	return res.Blocks[0].toBlock()
}

func (c *NodeClient) GetUnconfirmedTransactions(ctx context.Context, account escrow.AccountID) ([]Transaction, error) {
	var res struct {
		Transactions []transactionJSON `json:"unconfirmedTransactions"`
		errorJSON
	}
	err := c.get(ctx, url.Values{
		"requestType": {"getUnconfirmedTransactions"},
		"account":     {formatAccount(account)},
	}, &res)
	if err != nil {
		return nil, err
	}
	if res.ErrorDescription != "" {
		return nil, lib.WrapError(ErrNodeResponse, fmt.Errorf("getUnconfirmedTransactions: %s", res.ErrorDescription))
	}

	txs := make([]Transaction, 0, len(res.Transactions))
	for _, tx := range res.Transactions {
		mapped, err := tx.toTransaction()
		if err != nil {
			return nil, err
		}
		txs = append(txs, mapped)
	}
	return txs, nil
}

// GetDeployedInstances walks the node's newest-first instance listing and
// returns everything above the cursor, oldest first. The cursor is the
// address of the newest instance already seen, which makes re-querying with
// an unchanged cursor idempotent.
func (c *NodeClient) GetDeployedInstances(ctx context.Context, codeHashID uint64, since Cursor) ([]DeployedInstance, Cursor, error) {
	var collected []DeployedInstance

	for first := 0; ; first += discoveryPageSize {
		var res struct {
			ATs []atJSON `json:"ats"`
			errorJSON
		}
		err := c.get(ctx, url.Values{
			"requestType": {"getATs"},
			"codeHashId":  {strconv.FormatUint(codeHashID, 10)},
			"firstIndex":  {strconv.Itoa(first)},
			"lastIndex":   {strconv.Itoa(first + discoveryPageSize - 1)},
		}, &res)
		if err != nil {
			return nil, since, err
		}
		if res.ErrorDescription != "" {
			return nil, since, lib.WrapError(ErrNodeResponse, fmt.Errorf("getATs: %s", res.ErrorDescription))
		}

		cursorHit := false
		for _, at := range res.ATs {
			instance, err := at.toInstance()
			if err != nil {
				return nil, since, err
			}
			if uint64(instance.Address) == uint64(since) {
				cursorHit = true
				break
			}
			collected = append(collected, instance)
		}

		if cursorHit || len(res.ATs) < discoveryPageSize {
			break
		}
	}

	// node lists newest first, callers want discovery order
	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}

	newCursor := since
	if len(collected) > 0 {
		newCursor = Cursor(collected[len(collected)-1].Address)
	}
	return collected, newCursor, nil
}

func (c *NodeClient) GetInstance(ctx context.Context, address escrow.AccountID) (DeployedInstance, error) {
	var res struct {
		atJSON
		errorJSON
	}
	err := c.get(ctx, url.Values{
		"requestType": {"getAT"},
		"at":          {formatAccount(address)},
	}, &res)
	if err != nil {
		return DeployedInstance{}, err
	}
	if res.ErrorDescription != "" {
		return DeployedInstance{}, lib.WrapError(ErrNodeResponse, fmt.Errorf("getAT: %s", res.ErrorDescription))
	}
	return res.atJSON.toInstance()
}

func (c *NodeClient) BroadcastTransaction(ctx context.Context, signedBytes []byte) (uint64, error) {
	var res struct {
		Transaction string `json:"transaction"`
		errorJSON
	}
	err := c.post(ctx, url.Values{
		"requestType":      {"broadcastTransaction"},
		"transactionBytes": {hex.EncodeToString(signedBytes)},
	}, &res)
	if err != nil {
		return 0, err
	}
	if res.ErrorDescription != "" {
		return 0, lib.WrapError(ErrNodeResponse, fmt.Errorf("broadcastTransaction: %s", res.ErrorDescription))
	}
	return strconv.ParseUint(res.Transaction, 10, 64)
}

func (c *NodeClient) get(ctx context.Context, query url.Values, out interface{}) error {
	return c.doRetry(ctx, http.MethodGet, query, out)
}

func (c *NodeClient) post(ctx context.Context, query url.Values, out interface{}) error {
	return c.doRetry(ctx, http.MethodPost, query, out)
}

func (c *NodeClient) doRetry(ctx context.Context, method string, query url.Values, out interface{}) error {
	var lastErr error

	for attempt := 0; attempt < c.maxReconnects; attempt++ {
		err := c.do(ctx, method, query, out)
		if err == nil {
			if attempt > 0 {
				c.log.Warnf("node request recovered after error: %s", lastErr)
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
	}

	return lib.WrapError(ErrNodeRequest, lastErr)
}

func (c *NodeClient) do(ctx context.Context, method string, query url.Values, out interface{}) error {
	endpoint := c.baseURL + "/api"

	var req *http.Request
	var err error
	if method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(query.Encode()))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, method, endpoint+"?"+query.Encode(), nil)
	}
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return lib.WrapError(ErrNodeResponse, err)
	}
	return nil
}

type errorJSON struct {
	ErrorDescription string `json:"errorDescription"`
}

type blockJSON struct {
	Block     string `json:"block"`
	Height    int64  `json:"height"`
	Timestamp int64  `json:"timestamp"`
}

func (b blockJSON) toBlock() (Block, error) {
	id, err := strconv.ParseUint(b.Block, 10, 64)
	if err != nil {
		return Block{}, lib.WrapError(ErrNodeResponse, err)
	}
	return Block{
		ID:        id,
		Height:    b.Height,
		Timestamp: time.Unix(b.Timestamp, 0),
	}, nil
}

type transactionJSON struct {
	Transaction     string `json:"transaction"`
	Sender          string `json:"sender"`
	Recipient       string `json:"recipient"`
	AmountNQT       string `json:"amountNQT"`
	AttachmentBytes string `json:"attachmentBytes"`
}

func (t transactionJSON) toTransaction() (Transaction, error) {
	id, err := strconv.ParseUint(t.Transaction, 10, 64)
	if err != nil {
		return Transaction{}, lib.WrapError(ErrNodeResponse, err)
	}
	sender, err := parseAccount(t.Sender)
	if err != nil {
		return Transaction{}, err
	}
	recipient, err := parseAccount(t.Recipient)
	if err != nil {
		return Transaction{}, err
	}
	amount, err := strconv.ParseInt(t.AmountNQT, 10, 64)
	if err != nil {
		return Transaction{}, lib.WrapError(ErrNodeResponse, err)
	}
	attachment, err := hex.DecodeString(t.AttachmentBytes)
	if err != nil {
		return Transaction{}, lib.WrapError(ErrNodeResponse, err)
	}
	return Transaction{
		ID:         id,
		Sender:     sender,
		Recipient:  recipient,
		Amount:     amount,
		Attachment: attachment,
	}, nil
}

type atJSON struct {
	AT            string `json:"at"`
	Creator       string `json:"creator"`
	Version       int32  `json:"atVersion"`
	MachineCode   string `json:"machineCode"`
	CreationBytes string `json:"creationBytes"`
	MachineData   string `json:"machineData"`
	BalanceNQT    string `json:"balanceNQT"`
}

func (a atJSON) toInstance() (DeployedInstance, error) {
	address, err := parseAccount(a.AT)
	if err != nil {
		return DeployedInstance{}, err
	}
	creator, err := parseAccount(a.Creator)
	if err != nil {
		return DeployedInstance{}, err
	}
	code, err := hex.DecodeString(a.MachineCode)
	if err != nil {
		return DeployedInstance{}, lib.WrapError(ErrNodeResponse, err)
	}
	balance, err := strconv.ParseInt(a.BalanceNQT, 10, 64)
	if err != nil {
		return DeployedInstance{}, lib.WrapError(ErrNodeResponse, err)
	}

	creation, err := decodeLongs(a.CreationBytes, 3)
	if err != nil {
		return DeployedInstance{}, err
	}

	instance := DeployedInstance{
		Address:      address,
		Creator:      creator,
		Version:      a.Version,
		MachineCode:  code,
		CreationData: [3]int64{creation[0], creation[1], creation[2]},
		Balance:      balance,
	}

	// a freshly deployed instance may not have run yet, in which case the
	// data segment is empty and the machine state is all zeroes
	if a.MachineData != "" {
		data, err := decodeLongs(a.MachineData, machineDataLongs)
		if err != nil {
			return DeployedInstance{}, err
		}
		instance.StateCode = data[dataState]
		instance.Rate = data[dataRate]
		instance.PauseTimeoutAt = time.Unix(data[dataPauseTimeout], 0)
		instance.Amount = data[dataAmount]
		instance.Security = data[dataSecurity]
		instance.Nonce = data[dataNonce]
		instance.Taker = escrow.AccountID(data[dataTaker])
	}

	return instance, nil
}

// decodeLongs parses a hex blob of little-endian 64-bit values
func decodeLongs(hexStr string, count int) ([]int64, error) {
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, lib.WrapError(ErrNodeResponse, err)
	}
	if len(raw) < count*8 {
		return nil, lib.WrapError(ErrNodeResponse, fmt.Errorf("data segment too short: %d bytes, want %d", len(raw), count*8))
	}

	longs := make([]int64, count)
	for i := 0; i < count; i++ {
		longs[i] = int64(binary.LittleEndian.Uint64(raw[i*8 : i*8+8]))
	}
	return longs, nil
}

func parseAccount(s string) (escrow.AccountID, error) {
	if s == "" {
		return 0, nil
	}
	// node renders account ids as unsigned decimal strings
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, lib.WrapError(ErrNodeResponse, err)
	}
	return escrow.AccountID(id), nil
}

func formatAccount(id escrow.AccountID) string {
	return strconv.FormatUint(uint64(id), 10)
}
