// Package state persists the lottery module's records over a generic
// key-value database. Accounts, the epoch record, draw records and the active
// parameters are stored as JSON documents; a separate index key tracks the
// set of known participant addresses so the selection tree can be rebuilt at
// startup.
package state

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"

	"prizepool/core/types"
	"prizepool/native/lottery"
	"prizepool/storage"
)

// Manager implements the lottery engine's persistence surface.
type Manager struct {
	db        storage.Database
	index     map[[20]byte]struct{}
	drawIndex []uint64
}

// NewManager opens a state manager over db and loads the participant and
// draw indexes.
func NewManager(db storage.Database) (*Manager, error) {
	m := &Manager{db: db, index: make(map[[20]byte]struct{})}
	ok, err := db.Has([]byte(keyLotteryIndex))
	if err != nil {
		return nil, err
	}
	if ok {
		raw, err := db.Get([]byte(keyLotteryIndex))
		if err != nil {
			return nil, err
		}
		var encoded []string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil, fmt.Errorf("state: decode account index: %w", err)
		}
		for _, entry := range encoded {
			decoded, err := hex.DecodeString(entry)
			if err != nil || len(decoded) != 20 {
				return nil, fmt.Errorf("state: corrupt account index entry %q", entry)
			}
			var addr [20]byte
			copy(addr[:], decoded)
			m.index[addr] = struct{}{}
		}
	}
	ok, err = db.Has([]byte(keyLotteryDraws))
	if err != nil {
		return nil, err
	}
	if ok {
		raw, err := db.Get([]byte(keyLotteryDraws))
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &m.drawIndex); err != nil {
			return nil, fmt.Errorf("state: decode draw index: %w", err)
		}
	}
	return m, nil
}

// LotteryAccount loads the account for addr, returning nil when absent.
func (m *Manager) LotteryAccount(addr [20]byte) (*types.Account, error) {
	ok, err := m.db.Has(lotteryAccountKey(addr))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	raw, err := m.db.Get(lotteryAccountKey(addr))
	if err != nil {
		return nil, err
	}
	account := &types.Account{}
	if err := json.Unmarshal(raw, account); err != nil {
		return nil, fmt.Errorf("state: decode account: %w", err)
	}
	account.EnsureDefaults()
	return account, nil
}

// PutLotteryAccount persists the account and registers addr in the index.
func (m *Manager) PutLotteryAccount(addr [20]byte, account *types.Account) error {
	if account == nil {
		account = &types.Account{}
	}
	account.EnsureDefaults()
	raw, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("state: encode account: %w", err)
	}
	if err := m.db.Put(lotteryAccountKey(addr), raw); err != nil {
		return err
	}
	if _, ok := m.index[addr]; !ok {
		m.index[addr] = struct{}{}
		return m.persistIndex()
	}
	return nil
}

// LotteryAccounts walks every known account in a stable order.
func (m *Manager) LotteryAccounts(fn func(addr [20]byte, account *types.Account) bool) error {
	addrs := make([][20]byte, 0, len(m.index))
	for addr := range m.index {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return hex.EncodeToString(addrs[i][:]) < hex.EncodeToString(addrs[j][:])
	})
	for _, addr := range addrs {
		account, err := m.LotteryAccount(addr)
		if err != nil {
			return err
		}
		if account == nil {
			continue
		}
		if !fn(addr, account) {
			return nil
		}
	}
	return nil
}

// LotterySupply loads the total outstanding stake.
func (m *Manager) LotterySupply() (*big.Int, error) {
	ok, err := m.db.Has([]byte(keyLotterySupply))
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	raw, err := m.db.Get([]byte(keyLotterySupply))
	if err != nil {
		return nil, err
	}
	supply, ok := new(big.Int).SetString(string(raw), 10)
	if !ok {
		return nil, fmt.Errorf("state: corrupt supply record %q", raw)
	}
	return supply, nil
}

// SetLotterySupply persists the total outstanding stake.
func (m *Manager) SetLotterySupply(supply *big.Int) error {
	if supply == nil {
		supply = big.NewInt(0)
	}
	return m.db.Put([]byte(keyLotterySupply), []byte(supply.String()))
}

// LotteryEpoch loads the epoch record.
func (m *Manager) LotteryEpoch() (*lottery.EpochState, bool, error) {
	ok, err := m.db.Has([]byte(keyLotteryEpoch))
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	raw, err := m.db.Get([]byte(keyLotteryEpoch))
	if err != nil {
		return nil, false, err
	}
	epoch := &lottery.EpochState{}
	if err := json.Unmarshal(raw, epoch); err != nil {
		return nil, false, fmt.Errorf("state: decode epoch: %w", err)
	}
	return epoch, true, nil
}

// PutLotteryEpoch persists the epoch record.
func (m *Manager) PutLotteryEpoch(epoch *lottery.EpochState) error {
	raw, err := json.Marshal(epoch)
	if err != nil {
		return fmt.Errorf("state: encode epoch: %w", err)
	}
	return m.db.Put([]byte(keyLotteryEpoch), raw)
}

// LotteryDraw loads the draw record for requestID.
func (m *Manager) LotteryDraw(requestID uint64) (*lottery.DrawRecord, bool, error) {
	ok, err := m.db.Has(lotteryDrawKey(requestID))
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	raw, err := m.db.Get(lotteryDrawKey(requestID))
	if err != nil {
		return nil, false, err
	}
	record := &lottery.DrawRecord{}
	if err := json.Unmarshal(raw, record); err != nil {
		return nil, false, fmt.Errorf("state: decode draw: %w", err)
	}
	return record, true, nil
}

// PutLotteryDraw persists the draw record and registers it in the index.
func (m *Manager) PutLotteryDraw(record *lottery.DrawRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("state: encode draw: %w", err)
	}
	if err := m.db.Put(lotteryDrawKey(record.RequestID), raw); err != nil {
		return err
	}
	for _, id := range m.drawIndex {
		if id == record.RequestID {
			return nil
		}
	}
	m.drawIndex = append(m.drawIndex, record.RequestID)
	sort.Slice(m.drawIndex, func(i, j int) bool { return m.drawIndex[i] < m.drawIndex[j] })
	encoded, err := json.Marshal(m.drawIndex)
	if err != nil {
		return fmt.Errorf("state: encode draw index: %w", err)
	}
	return m.db.Put([]byte(keyLotteryDraws), encoded)
}

// LotteryDraws walks every known draw record in request id order.
func (m *Manager) LotteryDraws(fn func(record *lottery.DrawRecord) bool) error {
	for _, id := range m.drawIndex {
		record, ok, err := m.LotteryDraw(id)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if !fn(record) {
			return nil
		}
	}
	return nil
}

// LotteryParams loads the persisted parameters.
func (m *Manager) LotteryParams() (*lottery.Params, bool, error) {
	ok, err := m.db.Has([]byte(keyLotteryParams))
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	raw, err := m.db.Get([]byte(keyLotteryParams))
	if err != nil {
		return nil, false, err
	}
	params := &lottery.Params{}
	if err := json.Unmarshal(raw, params); err != nil {
		return nil, false, fmt.Errorf("state: decode params: %w", err)
	}
	return params, true, nil
}

// PutLotteryParams persists the parameters.
func (m *Manager) PutLotteryParams(params *lottery.Params) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("state: encode params: %w", err)
	}
	return m.db.Put([]byte(keyLotteryParams), raw)
}

func (m *Manager) persistIndex() error {
	encoded := make([]string, 0, len(m.index))
	for addr := range m.index {
		encoded = append(encoded, hex.EncodeToString(addr[:]))
	}
	sort.Strings(encoded)
	raw, err := json.Marshal(encoded)
	if err != nil {
		return fmt.Errorf("state: encode account index: %w", err)
	}
	return m.db.Put([]byte(keyLotteryIndex), raw)
}
