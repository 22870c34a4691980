package solana

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	scouterr "github.com/Sonic-Vault/scout-api/internal/errors"
)

// Well-known program ids.
const (
	SystemProgramID          = "11111111111111111111111111111111"
	TokenProgramID           = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	AssociatedTokenProgramID = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
	TokenSwapProgramID       = "SwapsVeCiPHMUAtzQWZw7RjsKjgCjhwU55QGu4U1Szw"
)

// Pubkey is a 32-byte account address.
type Pubkey [32]byte

// PubkeyFromBase58 parses a base58 address.
func PubkeyFromBase58(s string) (Pubkey, error) {
	raw, err := base58.Decode(s)
	if err != nil || len(raw) != 32 {
		return Pubkey{}, scouterr.Newf(scouterr.KindInvalidInput, "invalid solana address %q", s)
	}
	var pk Pubkey
	copy(pk[:], raw)
	return pk, nil
}

func (p Pubkey) String() string { return base58.Encode(p[:]) }

// IsValidAddress reports whether s is a well-formed base58 32-byte address.
func IsValidAddress(s string) bool {
	_, err := PubkeyFromBase58(s)
	return err == nil
}

// AccountMeta marks how an instruction touches one account.
type AccountMeta struct {
	Pubkey     Pubkey
	IsSigner   bool
	IsWritable bool
}

// Instruction is one program invocation inside a transaction.
type Instruction struct {
	ProgramID Pubkey
	Accounts  []AccountMeta
	Data      []byte
}

// TransferInstruction builds a system-program native value transfer.
func TransferInstruction(from, to Pubkey, lamports uint64) Instruction {
	program, _ := PubkeyFromBase58(SystemProgramID)
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], 2) // SystemInstruction::Transfer
	binary.LittleEndian.PutUint64(data[4:12], lamports)
	return Instruction{
		ProgramID: program,
		Accounts: []AccountMeta{
			{Pubkey: from, IsSigner: true, IsWritable: true},
			{Pubkey: to, IsWritable: true},
		},
		Data: data,
	}
}

// CreateAssociatedTokenAccountIdempotent builds the create-if-absent
// instruction for the owner's associated token account. It never fails when
// the account already exists, which keeps account creation and the swap safe
// to combine in one atomic transaction.
func CreateAssociatedTokenAccountIdempotent(payer, owner, mint Pubkey) (Instruction, error) {
	program, _ := PubkeyFromBase58(AssociatedTokenProgramID)
	system, _ := PubkeyFromBase58(SystemProgramID)
	token, _ := PubkeyFromBase58(TokenProgramID)

	ata, err := AssociatedTokenAddress(owner, mint)
	if err != nil {
		return Instruction{}, err
	}
	return Instruction{
		ProgramID: program,
		Accounts: []AccountMeta{
			{Pubkey: payer, IsSigner: true, IsWritable: true},
			{Pubkey: ata, IsWritable: true},
			{Pubkey: owner},
			{Pubkey: mint},
			{Pubkey: system},
			{Pubkey: token},
		},
		Data: []byte{1}, // CreateIdempotent
	}, nil
}

// AssociatedTokenAddress derives the canonical token account for an owner
// and mint.
func AssociatedTokenAddress(owner, mint Pubkey) (Pubkey, error) {
	program, _ := PubkeyFromBase58(AssociatedTokenProgramID)
	token, _ := PubkeyFromBase58(TokenProgramID)
	addr, _, err := FindProgramAddress([][]byte{owner[:], token[:], mint[:]}, program)
	return addr, err
}

// FindProgramAddress walks bump seeds downward until the derived address
// falls off the ed25519 curve, the defining property of a program-derived
// address (no private key can exist for it).
func FindProgramAddress(seeds [][]byte, programID Pubkey) (Pubkey, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		h := sha256.New()
		for _, seed := range seeds {
			h.Write(seed)
		}
		h.Write([]byte{uint8(bump)})
		h.Write(programID[:])
		h.Write([]byte("ProgramDerivedAddress"))
		var candidate Pubkey
		copy(candidate[:], h.Sum(nil))
		if !isOnCurve(candidate) {
			return candidate, uint8(bump), nil
		}
	}
	return Pubkey{}, 0, scouterr.New(scouterr.KindInternal, "unable to find a viable program address bump")
}

func isOnCurve(p Pubkey) bool {
	_, err := new(edwards25519.Point).SetBytes(p[:])
	return err == nil
}

// Transaction assembles, signs, and serializes a legacy-format transaction.
type Transaction struct {
	payer        Pubkey
	blockhash    [32]byte
	instructions []Instruction
}

// NewTransaction starts a transaction paid for and signed by payer.
func NewTransaction(payer Pubkey, recentBlockhash string, instructions ...Instruction) (*Transaction, error) {
	raw, err := base58.Decode(recentBlockhash)
	if err != nil || len(raw) != 32 {
		return nil, scouterr.New(scouterr.KindUnavailable, "malformed recent blockhash")
	}
	tx := &Transaction{payer: payer, instructions: instructions}
	copy(tx.blockhash[:], raw)
	return tx, nil
}

type compiledAccount struct {
	pubkey   Pubkey
	signer   bool
	writable bool
}

// compileAccounts orders the unique account set as the message format
// requires: writable signers, readonly signers, writable non-signers,
// readonly non-signers, with the fee payer first.
func (t *Transaction) compileAccounts() []compiledAccount {
	merged := []compiledAccount{{pubkey: t.payer, signer: true, writable: true}}
	index := map[Pubkey]int{t.payer: 0}

	add := func(pk Pubkey, signer, writable bool) {
		if i, ok := index[pk]; ok {
			merged[i].signer = merged[i].signer || signer
			merged[i].writable = merged[i].writable || writable
			return
		}
		index[pk] = len(merged)
		merged = append(merged, compiledAccount{pubkey: pk, signer: signer, writable: writable})
	}
	for _, ins := range t.instructions {
		for _, acc := range ins.Accounts {
			add(acc.Pubkey, acc.IsSigner, acc.IsWritable)
		}
		add(ins.ProgramID, false, false)
	}

	ordered := make([]compiledAccount, 0, len(merged))
	pick := func(signer, writable bool) {
		for _, acc := range merged {
			if acc.signer == signer && acc.writable == writable {
				ordered = append(ordered, acc)
			}
		}
	}
	pick(true, true)
	pick(true, false)
	pick(false, true)
	pick(false, false)
	return ordered
}

// messageBytes serializes the transaction message (the signed payload).
func (t *Transaction) messageBytes() ([]byte, error) {
	accounts := t.compileAccounts()
	index := make(map[Pubkey]int, len(accounts))
	numSigners, numReadonlySigned, numReadonlyUnsigned := 0, 0, 0
	for i, acc := range accounts {
		index[acc.pubkey] = i
		if acc.signer {
			numSigners++
			if !acc.writable {
				numReadonlySigned++
			}
		} else if !acc.writable {
			numReadonlyUnsigned++
		}
	}

	var buf bytes.Buffer
	buf.WriteByte(uint8(numSigners))
	buf.WriteByte(uint8(numReadonlySigned))
	buf.WriteByte(uint8(numReadonlyUnsigned))

	writeCompactU16(&buf, len(accounts))
	for _, acc := range accounts {
		buf.Write(acc.pubkey[:])
	}
	buf.Write(t.blockhash[:])

	writeCompactU16(&buf, len(t.instructions))
	for _, ins := range t.instructions {
		programIdx, ok := index[ins.ProgramID]
		if !ok {
			return nil, fmt.Errorf("program id missing from account table")
		}
		buf.WriteByte(uint8(programIdx))
		writeCompactU16(&buf, len(ins.Accounts))
		for _, acc := range ins.Accounts {
			buf.WriteByte(uint8(index[acc.Pubkey]))
		}
		writeCompactU16(&buf, len(ins.Data))
		buf.Write(ins.Data)
	}
	return buf.Bytes(), nil
}

// Sign serializes the message, signs it with each required signer key, and
// returns the base64 wire form plus the payer signature (the transaction id).
func (t *Transaction) Sign(signers ...ed25519.PrivateKey) (wire string, signature string, err error) {
	msg, err := t.messageBytes()
	if err != nil {
		return "", "", scouterr.Wrap(scouterr.KindInternal, "serialize transaction", err)
	}

	byAddress := make(map[Pubkey]ed25519.PrivateKey, len(signers))
	for _, key := range signers {
		var pk Pubkey
		copy(pk[:], key.Public().(ed25519.PublicKey))
		byAddress[pk] = key
	}

	accounts := t.compileAccounts()
	var sigs [][]byte
	for _, acc := range accounts {
		if !acc.signer {
			continue
		}
		key, ok := byAddress[acc.pubkey]
		if !ok {
			return "", "", scouterr.Newf(scouterr.KindInternal, "missing signer for %s", acc.pubkey)
		}
		sigs = append(sigs, ed25519.Sign(key, msg))
	}

	var buf bytes.Buffer
	writeCompactU16(&buf, len(sigs))
	for _, sig := range sigs {
		buf.Write(sig)
	}
	buf.Write(msg)

	return base64.StdEncoding.EncodeToString(buf.Bytes()), base58.Encode(sigs[0]), nil
}

func writeCompactU16(buf *bytes.Buffer, v int) {
	for {
		b := uint8(v & 0x7f)
		v >>= 7
		if v == 0 {
			buf.WriteByte(b)
			return
		}
		buf.WriteByte(b | 0x80)
	}
}
