package main

import (
	"log"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"go.uber.org/zap"

	"github.com/centralbank/usdw/backend/chaincode/usdw-core/chaincode"
	"github.com/centralbank/usdw/backend/internal/engine"
	"github.com/centralbank/usdw/backend/pkg/common"
	"github.com/centralbank/usdw/backend/pkg/common/logger"
)

func main() {
	cfg, err := common.LoadChaincodeConfig()
	if err != nil {
		log.Panicf("Error loading USDw chaincode config: %v", err)
	}

	logr, err := logger.New("usdw-core", cfg.LogLevel)
	if err != nil {
		log.Panicf("Error creating logger: %v", err)
	}
	defer logr.Sync()

	bootstrap, err := engine.ParseBootstrap(cfg.Bootstrap)
	if err != nil {
		logr.Fatal("invalid bootstrap accounts", zap.Error(err))
	}
	ledgerCfg := engine.Config{
		IssuerMSP:      cfg.IssuerMSP,
		ComplianceMSPs: common.SplitList(cfg.ComplianceMSPs),
		Bootstrap:      bootstrap,
	}

	usdwChaincode, err := contractapi.NewChaincode(chaincode.NewSmartContract(ledgerCfg, logr))
	if err != nil {
		logr.Fatal("error creating USDw chaincode", zap.Error(err))
	}

	logr.Info("starting USDw chaincode",
		zap.String("issuer", ledgerCfg.IssuerMSP),
		zap.Strings("complianceMSPs", ledgerCfg.ComplianceMSPs),
		zap.Bool("external", cfg.ExternalService()))

	if cfg.ExternalService() {
		server := &shim.ChaincodeServer{
			CCID:     cfg.CCID,
			Address:  cfg.ServerAddress,
			CC:       usdwChaincode,
			TLSProps: shim.TLSProperties{Disabled: true},
		}
		if err := server.Start(); err != nil {
			logr.Fatal("error starting USDw chaincode server", zap.Error(err))
		}
		return
	}

	if err := usdwChaincode.Start(); err != nil {
		logr.Fatal("error starting USDw chaincode", zap.Error(err))
	}
}
