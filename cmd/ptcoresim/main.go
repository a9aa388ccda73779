// Command ptcoresim drives one end-to-end loyalty-point transaction
// against an in-process server and two in-process clients, in whichever
// protocol variant the config file selects. It stands in for the outer
// dispatcher described by the core's concurrency model (§5): the core
// itself never touches the network or a clock.
package main

import (
	"os"

	"github.com/loyalty/ptcore/group"
	"github.com/loyalty/ptcore/internal/config"
	"github.com/loyalty/ptcore/internal/logger"
	"github.com/loyalty/ptcore/protocol"
)

func main() {
	cfgPath := os.Getenv("PTCORE_CONFIG")
	if cfgPath == "" {
		cfgPath = "cmd/ptcoresim/config.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}

	lg := logger.New(cfg.LogLevel)

	var scheme protocol.Scheme
	switch cfg.Variant {
	case config.SemiHonest:
		scheme = protocol.SemiHonest{}
	case config.Malicious:
		scheme = protocol.Malicious{}
	}

	g := group.New()
	server, err := protocol.NewServer(g, scheme, cfg.MaxPoints)
	if err != nil {
		lg.Fatal().Err(err).Msg("constructing server")
	}

	clients := make([]*protocol.Client, len(cfg.Users))
	for i, u := range cfg.Users {
		c := protocol.NewClient(g, scheme, i, cfg.MaxPoints)
		uid, _, err := server.RegisterUser(u.Barcode, c.PublicKey())
		if err != nil {
			lg.Fatal().Err(err).Int("uid", i).Msg("registering user")
		}
		clients[uid] = c
	}

	snap := server.ShareState()
	for _, c := range clients {
		c.UpdateState(snap)
	}
	lg.Info().Str("variant", string(cfg.Variant)).Int("numUsers", snap.NumUsers).Msg("registry ready")

	const x = 17
	shopper := clients[0]

	com, err := shopper.Hello()
	if err != nil {
		lg.Fatal().Err(err).Msg("hello")
	}
	is, err := server.Hello(com, 0)
	if err != nil {
		lg.Fatal().Err(err).Msg("server hello")
	}

	ic, r, err := shopper.Open(com, is)
	if err != nil {
		lg.Fatal().Err(err).Msg("open")
	}
	uidBarcode, barcode, pkBarcode, base, proof, err := server.BarcodeGen(com, ic, r)
	if err != nil {
		lg.Fatal().Err(err).Msg("barcode_gen")
	}
	if err := shopper.ReceiveBarcodeGen(com, uidBarcode, barcode, pkBarcode, base, proof); err != nil {
		lg.Fatal().Err(err).Msg("verifying barcode_gen response")
	}
	lg.Info().Int("barcodeOwner", uidBarcode).Msg("anonymous barcode swap complete")

	owner := clients[uidBarcode]
	msg, err := shopper.Tx(com, x, shopper.PublicKey(), owner.PublicKey())
	if err != nil {
		lg.Fatal().Err(err).Msg("building transaction")
	}
	sig, err := server.Tx(com, msg)
	if err != nil {
		lg.Fatal().Err(err).Msg("server tx")
	}

	snap = server.ShareState()
	if _, err := shopper.Coda(com, snap.ServerVK, sig); err != nil {
		lg.Fatal().Err(err).Msg("coda")
	}
	lg.Info().Int64("points", x).Int64("shopperBalance", shopper.Balance()).Msg("transaction confirmed")

	delivered := server.SendReceipts(uidBarcode)
	if _, err := owner.ProcessReceipts(snap.ServerVK, delivered); err != nil {
		lg.Fatal().Err(err).Msg("processing receipts")
	}
	lg.Info().Int64("ownerBalance", owner.Balance()).Msg("receipts processed")

	switch cfg.Variant {
	case config.Malicious:
		xClaim, items, settleProof := shopper.SettleMalicious()
		if err := server.SettleMalicious(0, xClaim, items, settleProof); err != nil {
			lg.Fatal().Err(err).Msg("settle_balance")
		}
	case config.SemiHonest:
		ct, err := server.RevealBalance(0)
		if err != nil {
			lg.Fatal().Err(err).Msg("reveal_balance")
		}
		xClaim, decProof, err := shopper.SettleSemiHonest(ct)
		if err != nil {
			lg.Fatal().Err(err).Msg("settle_balance decrypt")
		}
		if err := server.SettleSemiHonestFinalize(0, xClaim, decProof); err != nil {
			lg.Fatal().Err(err).Msg("settle_balance_finalize")
		}
	}
	lg.Info().Msg("settlement verified")
}
