package minting

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
)

// SolanaConfig contains ledger network configuration
type SolanaConfig struct {
	RPCURL string `json:"rpc_url"`
	// Base58 private key of the account that pays fees and holds mint
	// authority
	MintAuthorityKey string `json:"mint_authority_key"`
	// Poll interval while waiting for finalization
	ConfirmInterval time.Duration `json:"confirm_interval"`
}

// SolanaClient mints credit tokens on Solana: one fresh mint account per
// project, zero decimals, full supply issued to the recipient's associated
// token account in a single transaction.
type SolanaClient struct {
	rpc       *rpc.Client
	authority solana.PrivateKey
	config    SolanaConfig
}

// NewSolanaClient creates a new ledger client
func NewSolanaClient(config SolanaConfig) (*SolanaClient, error) {
	authority, err := solana.PrivateKeyFromBase58(config.MintAuthorityKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mint authority key: %w", err)
	}
	if config.ConfirmInterval <= 0 {
		config.ConfirmInterval = 2 * time.Second
	}
	return &SolanaClient{
		rpc:       rpc.New(config.RPCURL),
		authority: authority,
		config:    config,
	}, nil
}

// Mint submits the mint transaction and waits for finalization. A context
// deadline during the wait returns ErrConfirmationTimeout: the transaction
// may still land on-ledger.
func (c *SolanaClient) Mint(ctx context.Context, params MintParams) (*MintResult, error) {
	recipient, err := solana.PublicKeyFromBase58(params.Recipient)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}

	payer := c.authority.PublicKey()
	mint := solana.NewWallet()

	rent, err := c.rpc.GetMinimumBalanceForRentExemption(ctx, token.MINT_SIZE, rpc.CommitmentFinalized)
	if err != nil {
		return nil, fmt.Errorf("failed to get rent exemption: %w", err)
	}

	recent, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, fmt.Errorf("failed to get blockhash: %w", err)
	}

	ata, _, err := solana.FindAssociatedTokenAddress(recipient, mint.PublicKey())
	if err != nil {
		return nil, fmt.Errorf("failed to derive token account: %w", err)
	}

	instructions := []solana.Instruction{
		system.NewCreateAccountInstruction(
			rent,
			token.MINT_SIZE,
			solana.TokenProgramID,
			payer,
			mint.PublicKey(),
		).Build(),
		token.NewInitializeMintInstruction(
			0, // whole credits only
			payer,
			payer,
			mint.PublicKey(),
			solana.SysVarRentPubkey,
		).Build(),
		associatedtokenaccount.NewCreateInstruction(
			payer,
			recipient,
			mint.PublicKey(),
		).Build(),
		token.NewMintToInstruction(
			params.Amount,
			mint.PublicKey(),
			ata,
			payer,
			nil,
		).Build(),
	}

	tx, err := solana.NewTransaction(instructions, recent.Value.Blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer) {
			return &c.authority
		}
		if key.Equals(mint.PublicKey()) {
			return &mint.PrivateKey
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentFinalized,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit transaction: %w", err)
	}

	slot, err := c.waitForFinalization(ctx, sig)
	if err != nil {
		return nil, err
	}

	return &MintResult{
		Signature:   sig.String(),
		MintAddress: mint.PublicKey().String(),
		Slot:        slot,
	}, nil
}

// waitForFinalization polls signature status until the cluster reports the
// transaction finalized, the ledger reports it failed, or the deadline
// passes with the outcome unknown.
func (c *SolanaClient) waitForFinalization(ctx context.Context, sig solana.Signature) (uint64, error) {
	ticker := time.NewTicker(c.config.ConfirmInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("%w: transaction %s submitted but unconfirmed", ErrConfirmationTimeout, sig)
		case <-ticker.C:
		}

		statuses, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			continue
		}
		if len(statuses.Value) == 0 || statuses.Value[0] == nil {
			continue
		}

		status := statuses.Value[0]
		if status.Err != nil {
			return 0, fmt.Errorf("transaction %s failed on ledger: %v", sig, status.Err)
		}
		if status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
			return status.Slot, nil
		}
	}
}
