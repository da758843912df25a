package httphandlers

import (
	"encoding/hex"
	"strconv"

	"net/http/pprof"

	"github.com/gin-gonic/gin"
	"github.com/misterplus/btdex/internal/config"
	"github.com/misterplus/btdex/internal/contract"
	"github.com/misterplus/btdex/internal/escrow"
	"github.com/misterplus/btdex/internal/interfaces"
	"github.com/misterplus/btdex/internal/repositories/ledger"
)

type HTTPHandler struct {
	registry   *contract.Registry
	tracker    *contract.Tracker
	mediators  *contract.MediatorSelector
	client     ledger.Client
	feeAccount escrow.AccountID
	config     *config.Config
	log        interfaces.ILogger
}

func NewHTTPHandler(registry *contract.Registry, tracker *contract.Tracker, mediators *contract.MediatorSelector, client ledger.Client, feeAccount escrow.AccountID, cfg *config.Config, log interfaces.ILogger) *gin.Engine {
	handl := &HTTPHandler{
		registry:   registry,
		tracker:    tracker,
		mediators:  mediators,
		client:     client,
		feeAccount: feeAccount,
		config:     cfg,
		log:        log,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.GET("/healthcheck", handl.HealthCheck)
	r.GET("/config", handl.GetConfig)
	r.GET("/status", handl.GetStatus)
	r.GET("/contracts", handl.GetContracts)
	r.GET("/contracts/:address", handl.GetContract)
	r.GET("/free-contracts", handl.GetFreeContracts)
	r.GET("/contract-data", handl.GetContractData)

	r.POST("/transactions", handl.BroadcastTransaction)

	r.Any("/debug/pprof/*action", gin.WrapF(pprof.Index))

	err := r.SetTrustedProxies(nil)
	if err != nil {
		panic(err)
	}

	return r
}

func (h *HTTPHandler) HealthCheck(ctx *gin.Context) {
	ctx.JSON(200, gin.H{
		"status":  "healthy",
		"version": config.BuildVersion,
	})
}

func (h *HTTPHandler) GetConfig(ctx *gin.Context) {
	ctx.JSON(200, h.config.GetSanitized())
}

func (h *HTTPHandler) GetStatus(ctx *gin.Context) {
	ctx.JSON(200, &StatusResponse{
		Loading:   h.tracker.Loading(),
		Contracts: h.registry.Len(),
		Cycles:    h.tracker.History(),
	})
}

func (h *HTTPHandler) GetContracts(ctx *gin.Context) {
	instances := h.registry.All()
	data := make([]*ContractResponse, 0, len(instances))
	for _, instance := range instances {
		data = append(data, mapContract(instance))
	}
	ctx.JSON(200, data)
}

func (h *HTTPHandler) GetContract(ctx *gin.Context) {
	address, err := strconv.ParseUint(ctx.Param("address"), 10, 64)
	if err != nil {
		ctx.JSON(400, gin.H{"error": "invalid contract address"})
		return
	}
	instance, ok := h.registry.Get(escrow.AccountID(address))
	if !ok {
		ctx.JSON(404, gin.H{"error": "contract not found"})
		return
	}
	ctx.JSON(200, mapContract(instance))
}

func (h *HTTPHandler) GetFreeContracts(ctx *gin.Context) {
	res := &FreeContractsResponse{
		Loading: h.tracker.Loading(),
	}
	if free := h.tracker.Free(); free != nil {
		res.Sell = mapContract(free.Sell)
		res.SellNoDeposit = mapContract(free.SellNoDeposit)
		res.Buy = mapContract(free.Buy)
	}
	ctx.JSON(200, res)
}

// GetContractData returns the creation payload for deploying a new escrow
// instance: the fee account plus two mediators drawn from the accepted
// roster. Every call draws a fresh pair.
func (h *HTTPHandler) GetContractData(ctx *gin.Context) {
	data, err := contract.NewContractData(h.feeAccount, h.mediators)
	if err != nil {
		ctx.JSON(503, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(200, &ContractDataResponse{
		FeeAccount:  strconv.FormatUint(uint64(data[0]), 10),
		Arbitrator1: strconv.FormatUint(uint64(data[1]), 10),
		Arbitrator2: strconv.FormatUint(uint64(data[2]), 10),
	})
}

func (h *HTTPHandler) BroadcastTransaction(ctx *gin.Context) {
	var req BroadcastRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}
	signedBytes, err := hex.DecodeString(req.TransactionBytes)
	if err != nil {
		ctx.JSON(400, gin.H{"error": "transactionBytes is not valid hex"})
		return
	}
	txID, err := h.client.BroadcastTransaction(ctx.Request.Context(), signedBytes)
	if err != nil {
		h.log.Warnf("broadcast failed: %s", err)
		ctx.JSON(502, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(200, &BroadcastResponse{
		Transaction: strconv.FormatUint(txID, 10),
	})
}
