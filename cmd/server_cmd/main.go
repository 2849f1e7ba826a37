package main

import (
	"fmt"

	"github.com/autarklabs/tokenrequest-go/cmd"
	"github.com/autarklabs/tokenrequest-go/logconfig"
	"github.com/spf13/viper"
)

const (
	ENV_CONFIG_FILE_PATH = "TOKEN_REQUEST_CONFIG"
)

func main() {
	// Tool to read environment variables
	viper.AutomaticEnv()

	// Set overall log level
	switch viper.GetString("LOG_LEVEL") {
	case "debug":
		logconfig.ConfigDebugLogger()
	case "info":
		logconfig.ConfigInfoLogger()
	default:
		logconfig.ConfigProductionLogger()
	}

	// Accessing an environment variable of configuration file location.
	_config_file := viper.GetString(ENV_CONFIG_FILE_PATH)
	fmt.Printf("Token request server configuration file = %s\n", _config_file)

	// See if file exists
	if !cmd.FileExists(_config_file) {
		fmt.Printf("Token request server configuration file not found: %s\n", _config_file)
		return
	}

	// Read from config file.
	success := initializeViper(_config_file)
	if !success {
		return
	}

	// Make the configuration
	cfg := PrepareTokenRequestServerConfig()

	fmt.Println("Starting token request server... press Ctrl+C to kill the server")
	// Start server and block.
	cmd.StartTokenRequestServerAndWait(cfg)
}

func initializeViper(filePath string) bool {
	viper.SetConfigFile(filePath)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf("Error reading configuration file, %s", err)
		return false
	}
	return true
}

// PrepareTokenRequestServerConfig reads configuration variables and returns a TokenRequestServerConfig.
func PrepareTokenRequestServerConfig() *cmd.TokenRequestServerConfig {
	return &cmd.TokenRequestServerConfig{
		// state side
		DbFilePath: viper.GetString("DB_FILE_PATH"),
		// ledger side
		LedgerAddr:       viper.GetString("LEDGER_ADDR"),
		TokenManagerAddr: viper.GetString("TOKEN_MANAGER_ADDR"),
		VaultAddr:        viper.GetString("VAULT_ADDR"),
		OrgTokenAddr:     viper.GetString("ORG_TOKEN_ADDR"),
		AdminAddr:        viper.GetString("ADMIN_ADDR"),
		AcceptedTokens:   viper.GetStringSlice("ACCEPTED_TOKENS"),
		// projector side
		Network:          viper.GetString("NETWORK"),
		EthRpcUrl:        viper.GetString("ETH_RPC_URL"),
		GovGatewayUrl:    viper.GetString("GOV_GATEWAY_URL"),
		TimeToExpirySecs: viper.GetInt64("TIME_TO_EXPIRY_SECS"),
		// Http side
		HttpIp:   viper.GetString("HTTP_IP"),
		HttpPort: viper.GetString("HTTP_PORT"),
	}
}
