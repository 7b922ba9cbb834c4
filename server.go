package main

import (
	"fmt"
	"os"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"go.uber.org/zap"

	"github.com/agroledger/chaincode/agroledger/config"
)

// RunAsService runs the chaincode as an external service the peer connects to
func RunAsService(cfg *config.Config, cc shim.Chaincode, logger *zap.Logger) error {
	tls, err := tlsProperties(cfg)
	if err != nil {
		return err
	}

	server := &shim.ChaincodeServer{
		CCID:     cfg.ChaincodeID,
		Address:  cfg.ServerAddress,
		CC:       cc,
		TLSProps: tls,
	}

	logger.Info("starting chaincode server",
		zap.String("address", cfg.ServerAddress),
		zap.String("chaincode_id", cfg.ChaincodeID),
		zap.Bool("tls", !tls.Disabled))
	return server.Start()
}

func tlsProperties(cfg *config.Config) (shim.TLSProperties, error) {
	if cfg.TLSDisabled {
		return shim.TLSProperties{Disabled: true}, nil
	}

	key, err := os.ReadFile(cfg.TLSKeyFile)
	if err != nil {
		return shim.TLSProperties{}, fmt.Errorf("failed to read TLS key: %v", err)
	}
	cert, err := os.ReadFile(cfg.TLSCertFile)
	if err != nil {
		return shim.TLSProperties{}, fmt.Errorf("failed to read TLS certificate: %v", err)
	}

	props := shim.TLSProperties{Key: key, Cert: cert}
	if cfg.TLSClientCAFile != "" {
		if props.ClientCACerts, err = os.ReadFile(cfg.TLSClientCAFile); err != nil {
			return shim.TLSProperties{}, fmt.Errorf("failed to read client CA certificates: %v", err)
		}
	}
	return props, nil
}
