package main

import (
	"log"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"go.uber.org/zap"

	"github.com/agroledger/chaincode/agroledger/config"
	"github.com/agroledger/chaincode/agroledger/contracts"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading agroledger configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer logger.Sync()

	chaincode, err := newChaincode(cfg, logger)
	if err != nil {
		logger.Fatal("Error creating agroledger chaincode", zap.Error(err))
	}

	// Check if running as external service
	if cfg.ExternalService() {
		if err := RunAsService(cfg, chaincode, logger); err != nil {
			logger.Fatal("Error starting agroledger chaincode server", zap.Error(err))
		}
		return
	}

	if err := chaincode.Start(); err != nil {
		logger.Fatal("Error starting agroledger chaincode", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	return zc.Build()
}

func newChaincode(cfg *config.Config, logger *zap.Logger) (*contractapi.ContractChaincode, error) {
	return contractapi.NewChaincode(
		contracts.NewAgroLedgerContract(cfg.MarkupBps, logger.Named("agroledger")),
		contracts.NewFundsContract(cfg.IssuerMSPs, logger.Named("funds")),
	)
}
