// Server = ledger + projector + http reporter.
// All components are configured via environment variables (strings!).

package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"

	"github.com/autarklabs/tokenrequest-go/bank"
	"github.com/autarklabs/tokenrequest-go/govfeed"
	"github.com/autarklabs/tokenrequest-go/ledger"
	"github.com/autarklabs/tokenrequest-go/projector"
	"github.com/autarklabs/tokenrequest-go/reporter"
	"github.com/autarklabs/tokenrequest-go/tokenman"
	"github.com/autarklabs/tokenrequest-go/tokenmeta"
)

// Default params for server.
// More often we don't recommend users to tweak those.
// So we list them here.
const (
	// projector config
	CHANNEL_BUFFER_SIZE = 64
	defaultTimeToExpiry = 24 * time.Hour
)

// Keep the configuration's fields as "text" as possible.
// Its easier to load it from env vars or a config file.
type TokenRequestServerConfig struct {
	// state side
	DbFilePath string // db file path

	// ledger side
	LedgerAddr       string   // address the ledger escrows deposits under
	TokenManagerAddr string   // minting authority address
	VaultAddr        string   // custody vault address
	OrgTokenAddr     string   // token minted on finalise
	AdminAddr        string   // granted every capability on first boot
	AcceptedTokens   []string // initial deposit allow-list (hex addresses)

	// projector side
	Network          string // mainnet, sepolia or local; selects the metadata fallback table
	EthRpcUrl        string // json rpc url for on-chain token metadata; empty = in-memory source
	GovGatewayUrl    string // governance gateway base url; empty = in-memory feed
	TimeToExpirySecs int64  // pending requests display as expired after this; 0 = default

	// Http side
	HttpIp   string // eg. 0.0.0.0
	HttpPort string // eg. 8080
}

// TokenRequestServer holds the objects that consists of the server.
type TokenRequestServer struct {
	MyDb           *sql.DB
	MyBook         *bank.Bank
	MyStateDb      *ledger.StateDB
	MyLedger       *ledger.Ledger
	MyTokenManager *tokenman.TokenManager
	MyProjector    *projector.Projector
}

// NewTokenRequestServer creates a new token request server.
// ctx is used for parental context to cancel the operation of the server.
// wg is used to wait for all the goroutines inside the server (projector) to finish.
func NewTokenRequestServer(cfg *TokenRequestServerConfig, ctx context.Context, wg *sync.WaitGroup) (*TokenRequestServer, error) {
	// Create sql db, and related asset book + state db.
	sqldb, err := sql.Open("sqlite3", cfg.DbFilePath)
	if err != nil {
		logger.Fatalf("failed to open db file: %v", err)
		return nil, err
	}
	// sqlite: a single connection avoids SQLITE_BUSY between the ledger's
	// write transactions and projector reads
	sqldb.SetMaxOpenConns(1)

	myBook, err := bank.New(sqldb)
	if err != nil {
		logger.Fatalf("failed to create asset book: %v", err)
		return nil, err
	}

	myStateDb, err := ledger.NewStateDB(sqldb)
	if err != nil {
		logger.Fatalf("failed to create state db: %v", err)
		return nil, err
	}

	// *** Create the <ledger> ***
	myLedger := ledger.New(myStateDb, myBook, &ledger.Config{
		Address: ethcommon.HexToAddress(cfg.LedgerAddr),
	})

	// *** Create the <token manager> (minting authority) ***
	myTokenManager, err := tokenman.New(
		myBook,
		ethcommon.HexToAddress(cfg.TokenManagerAddr),
		ethcommon.HexToAddress(cfg.OrgTokenAddr),
	)
	if err != nil {
		logger.Fatalf("failed to create token manager: %v", err)
		return nil, err
	}

	if err := myLedger.Initialize(myTokenManager, ethcommon.HexToAddress(cfg.VaultAddr)); err != nil {
		logger.Fatalf("failed to initialize ledger: %v", err)
		return nil, err
	}

	// Grant the admin every capability.
	// Idempotent across restarts.
	admin := ethcommon.HexToAddress(cfg.AdminAddr)
	for _, cap := range []ledger.Capability{
		ledger.CapFinalise,
		ledger.CapSetTokenManager,
		ledger.CapSetVault,
		ledger.CapManageTokens,
	} {
		if err := myStateDb.GrantCapability(admin, cap); err != nil {
			logger.Fatalf("failed to grant capability %s: %v", cap, err)
			return nil, err
		}
	}

	// Seed the deposit allow-list.
	// A token already on the list is fine (restart).
	for _, raw := range cfg.AcceptedTokens {
		token := ethcommon.HexToAddress(raw)
		err := myLedger.AddToken(admin, token)
		if err != nil && !errors.Is(err, ledger.ErrTokenAlreadyAccepted) {
			logger.Fatalf("failed to add accepted token %s: %v", raw, err)
			return nil, err
		}
	}

	// *** Pick a token metadata source ***
	// A real eth rpc url gives on-chain ERC-20 lookups, otherwise fall
	// back to the in-memory source with the static network table.
	var myMetaSource tokenmeta.Source
	if cfg.EthRpcUrl != "" {
		myMetaSource, err = tokenmeta.NewEthSource(cfg.EthRpcUrl, cfg.Network)
		if err != nil {
			logger.Fatalf("failed to create eth metadata source: %v", err)
			return nil, err
		}
	} else {
		logger.Info("no eth rpc url configured, token metadata served from the static table")
		myMetaSource = tokenmeta.NewSimSource(cfg.Network)
	}

	// *** Pick a governance feed ***
	var myFeed govfeed.Feed
	if cfg.GovGatewayUrl != "" {
		myFeed = govfeed.NewHTTPFeed(cfg.GovGatewayUrl)
	} else {
		logger.Info("no governance gateway configured, governance outcomes disabled")
		myFeed = govfeed.NewSimFeed()
	}

	timeToExpiry := defaultTimeToExpiry
	if cfg.TimeToExpirySecs > 0 {
		timeToExpiry = time.Duration(cfg.TimeToExpirySecs) * time.Second
	}

	// *** Create the <projector> (read-model) ***
	myProjector := projector.New(myStateDb, myMetaSource, myFeed, &projector.Config{
		ChannelSize:  CHANNEL_BUFFER_SIZE,
		Network:      cfg.Network,
		OrgToken:     ethcommon.HexToAddress(cfg.OrgTokenAddr),
		TimeToExpiry: timeToExpiry,
	})

	// Important: Turn on the projector!
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := myProjector.Start(ctx, myLedger.Publisher())
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatalf("failed to start projector: %v", err)
		}
	}()
	// Don't forget to call wg.Wait() in the main routine.

	// *** Setup a http server to report status ***
	http_server := reporter.NewHttpReporter(
		cfg.HttpIp,
		cfg.HttpPort,
		myProjector,
	)
	// Turn on the http server
	go http_server.Run()

	// Give it some time to start the http server
	time.Sleep(1 * time.Second)
	// *** End the setup of http server ***

	return &TokenRequestServer{
		MyDb:           sqldb,
		MyBook:         myBook,
		MyStateDb:      myStateDb,
		MyLedger:       myLedger,
		MyTokenManager: myTokenManager,
		MyProjector:    myProjector,
	}, nil
}

// Create, then start the token request server and wait.
// Press Ctrl-C to kill the server.
func StartTokenRequestServerAndWait(cfg *TokenRequestServerConfig) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up a signal channel to listen for Ctrl-C (SIGINT) or SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Launch a new goroutine to handle the signal
	go func() {
		sig := <-sigCh
		fmt.Printf("Received signal: %v, cancelling context...\n", sig)
		cancel()
	}()

	var wg sync.WaitGroup

	_, err := NewTokenRequestServer(cfg, ctx, &wg)
	if err != nil {
		logger.Fatalf("failed to create token request server: %v", err)
		return
	}

	// wait for all routines to finish
	wg.Wait()
}
