package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"paystream/internal/platform/address"
	"paystream/internal/platform/querier"
)

var errNumericRange = errors.New("numeric value out of uint64 range")

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func numeric(v uint64) pgtype.Numeric {
	return pgtype.Numeric{Int: new(big.Int).SetUint64(v), Valid: true}
}

func fromNumeric(n pgtype.Numeric) (uint64, error) {
	if !n.Valid || n.Int == nil {
		return 0, nil
	}
	v := new(big.Int).Set(n.Int)
	if n.Exp > 0 {
		v.Mul(v, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n.Exp)), nil))
	} else if n.Exp < 0 {
		v.Quo(v, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-n.Exp)), nil))
	}
	if v.Sign() < 0 || !v.IsUint64() {
		return 0, errNumericRange
	}
	return v.Uint64(), nil
}

func nullableID(id *uint64) *int64 {
	if id == nil {
		return nil
	}
	v := int64(*id)
	return &v
}

func (s *Store) Load(ctx context.Context) (State, map[address.Address]uint64, bool, error) {
	var (
		state             State
		owner, deployer   string
		vault             string
		balance, reserved pgtype.Numeric
		taxBps, yieldBps  int32
		nextStreamID      int64
	)
	err := s.DB.QueryRow(ctx, `
    SELECT owner, deployer, balance, reserved, tax_vault, tax_bps, yield_bps, next_stream_id
    FROM ledger_state
    WHERE id = 1
  `).Scan(&owner, &deployer, &balance, &reserved, &vault, &taxBps, &yieldBps, &nextStreamID)
	if errors.Is(err, pgx.ErrNoRows) {
		return State{}, nil, false, nil
	}
	if err != nil {
		return State{}, nil, false, err
	}
	state.Owner = address.Address(owner)
	state.Deployer = address.Address(deployer)
	state.Tax = TaxConfig{Vault: address.Address(vault), BasisPoints: uint16(taxBps)}
	state.YieldBps = uint16(yieldBps)
	state.NextStreamID = uint64(nextStreamID)
	if state.Balance, err = fromNumeric(balance); err != nil {
		return State{}, nil, false, err
	}
	if state.Reserved, err = fromNumeric(reserved); err != nil {
		return State{}, nil, false, err
	}

	rows, err := s.DB.Query(ctx, `SELECT address FROM ledger_hr ORDER BY address COLLATE "C"`)
	if err != nil {
		return State{}, nil, false, err
	}
	for rows.Next() {
		var member string
		if err := rows.Scan(&member); err != nil {
			rows.Close()
			return State{}, nil, false, err
		}
		state.HR = append(state.HR, address.Address(member))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return State{}, nil, false, err
	}

	if state.Streams, err = s.loadStreams(ctx); err != nil {
		return State{}, nil, false, err
	}
	if uint64(len(state.Streams)) != state.NextStreamID {
		return State{}, nil, false, fmt.Errorf("stream table has %d rows, expected %d", len(state.Streams), state.NextStreamID)
	}

	balances, err := s.loadBalances(ctx)
	if err != nil {
		return State{}, nil, false, err
	}
	return state, balances, true, nil
}

func (s *Store) loadStreams(ctx context.Context) ([]Stream, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, employee, rate_per_second, start_time, last_claim_time, total_deposited,
           active, is_endless, paused_at, total_bonus_added, bonus_withdrawn
    FROM streams
    ORDER BY id
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var streams []Stream
	for rows.Next() {
		var (
			st                          Stream
			id                          int64
			employee                    string
			rate, total, bonus, claimed pgtype.Numeric
		)
		if err := rows.Scan(&id, &employee, &rate, &st.StartTime, &st.LastClaimTime, &total,
			&st.Active, &st.IsEndless, &st.PausedAt, &bonus, &claimed); err != nil {
			return nil, err
		}
		st.ID = uint64(id)
		st.Employee = address.Address(employee)
		for _, f := range []struct {
			dst *uint64
			src pgtype.Numeric
		}{{&st.RatePerSecond, rate}, {&st.TotalDeposited, total}, {&st.TotalBonusAdded, bonus}, {&st.BonusWithdrawn, claimed}} {
			if *f.dst, err = fromNumeric(f.src); err != nil {
				return nil, fmt.Errorf("stream %d: %w", id, err)
			}
		}
		streams = append(streams, st)
	}
	return streams, rows.Err()
}

func (s *Store) loadBalances(ctx context.Context) (map[address.Address]uint64, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT recipient, SUM(amount)
    FROM payouts
    GROUP BY recipient
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	balances := map[address.Address]uint64{}
	for rows.Next() {
		var (
			recipient string
			sum       pgtype.Numeric
		)
		if err := rows.Scan(&recipient, &sum); err != nil {
			return nil, err
		}
		amount, err := fromNumeric(sum)
		if err != nil {
			return nil, err
		}
		balances[address.Address(recipient)] = amount
	}
	return balances, rows.Err()
}

func (s *Store) Commit(ctx context.Context, changes Changes) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := writeChanges(ctx, tx, changes); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func writeChanges(ctx context.Context, q querier.Querier, c Changes) error {
	g := c.Globals
	if _, err := q.Exec(ctx, `
    INSERT INTO ledger_state (id, owner, deployer, balance, reserved, tax_vault, tax_bps, yield_bps, next_stream_id, updated_at)
    VALUES (1,$1,$2,$3,$4,$5,$6,$7,$8, now())
    ON CONFLICT (id) DO UPDATE SET
      owner = EXCLUDED.owner,
      deployer = EXCLUDED.deployer,
      balance = EXCLUDED.balance,
      reserved = EXCLUDED.reserved,
      tax_vault = EXCLUDED.tax_vault,
      tax_bps = EXCLUDED.tax_bps,
      yield_bps = EXCLUDED.yield_bps,
      next_stream_id = EXCLUDED.next_stream_id,
      updated_at = now()
  `, string(g.Owner), string(g.Deployer), numeric(g.Balance), numeric(g.Reserved),
		string(g.Tax.Vault), int32(g.Tax.BasisPoints), int32(g.YieldBps), int64(g.NextStreamID)); err != nil {
		return fmt.Errorf("write ledger state: %w", err)
	}

	if _, err := q.Exec(ctx, `DELETE FROM ledger_hr`); err != nil {
		return fmt.Errorf("reset hr: %w", err)
	}
	for _, member := range g.HR {
		if _, err := q.Exec(ctx, `INSERT INTO ledger_hr (address) VALUES ($1)`, string(member)); err != nil {
			return fmt.Errorf("write hr: %w", err)
		}
	}

	for _, st := range c.Streams {
		if _, err := q.Exec(ctx, `
      INSERT INTO streams (id, employee, rate_per_second, start_time, last_claim_time, total_deposited,
                           active, is_endless, paused_at, total_bonus_added, bonus_withdrawn, updated_at)
      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11, now())
      ON CONFLICT (id) DO UPDATE SET
        start_time = EXCLUDED.start_time,
        last_claim_time = EXCLUDED.last_claim_time,
        active = EXCLUDED.active,
        paused_at = EXCLUDED.paused_at,
        total_bonus_added = EXCLUDED.total_bonus_added,
        bonus_withdrawn = EXCLUDED.bonus_withdrawn,
        updated_at = now()
    `, int64(st.ID), string(st.Employee), numeric(st.RatePerSecond), st.StartTime, st.LastClaimTime,
			numeric(st.TotalDeposited), st.Active, st.IsEndless, st.PausedAt,
			numeric(st.TotalBonusAdded), numeric(st.BonusWithdrawn)); err != nil {
			return fmt.Errorf("write stream %d: %w", st.ID, err)
		}
	}

	for _, e := range c.Events {
		if _, err := q.Exec(ctx, `
      INSERT INTO ledger_events (kind, at, stream_id, actor, account, amount, net, tax, rate, endless, bps)
      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
    `, string(e.Kind), e.At, nullableID(e.StreamID), string(e.Actor), string(e.Account),
			numeric(e.Amount), numeric(e.Net), numeric(e.Tax), numeric(e.Rate), e.Endless, int32(e.Bps)); err != nil {
			return fmt.Errorf("write event %s: %w", e.Kind, err)
		}
	}

	for _, p := range c.Payouts {
		if _, err := q.Exec(ctx, `
      INSERT INTO payouts (stream_id, recipient, amount, kind, at)
      VALUES ($1,$2,$3,$4,$5)
    `, nullableID(p.StreamID), string(p.Recipient), numeric(p.Amount), string(p.Kind), p.At); err != nil {
			return fmt.Errorf("write payout: %w", err)
		}
	}
	return nil
}

func (s *Store) CountEvents(ctx context.Context, filter EventFilter) (int, error) {
	query, args := buildEventQuery("SELECT COUNT(1)", filter)
	var total int
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) ListEvents(ctx context.Context, filter EventFilter, limit, offset int) ([]EventRecord, error) {
	query, args := buildEventQuery(`
    SELECT seq, kind, at, stream_id, actor, account, amount, net, tax, rate, endless, bps`, filter)
	query += fmt.Sprintf(" ORDER BY seq DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var (
			rec                    EventRecord
			kind, actor, account   string
			streamID               *int64
			amount, net, tax, rate pgtype.Numeric
			bps                    int32
		)
		if err := rows.Scan(&rec.Seq, &kind, &rec.At, &streamID, &actor, &account,
			&amount, &net, &tax, &rate, &rec.Endless, &bps); err != nil {
			return nil, err
		}
		rec.Kind = EventKind(kind)
		rec.Actor = address.Address(actor)
		rec.Account = address.Address(account)
		rec.Bps = uint16(bps)
		if streamID != nil {
			rec.StreamID = ptr(uint64(*streamID))
		}
		for _, f := range []struct {
			dst *uint64
			src pgtype.Numeric
		}{{&rec.Amount, amount}, {&rec.Net, net}, {&rec.Tax, tax}, {&rec.Rate, rate}} {
			if *f.dst, err = fromNumeric(f.src); err != nil {
				return nil, err
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func buildEventQuery(prefix string, filter EventFilter) (string, []any) {
	query := prefix + " FROM ledger_events WHERE 1=1"
	var args []any
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		query += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	if filter.StreamID != nil {
		args = append(args, int64(*filter.StreamID))
		query += fmt.Sprintf(" AND stream_id = $%d", len(args))
	}
	if !filter.Account.IsZero() {
		args = append(args, string(filter.Account))
		query += fmt.Sprintf(" AND (account = $%d OR actor = $%d)", len(args), len(args))
	}
	return query, args
}

func (s *Store) ListPayouts(ctx context.Context, streamID uint64) ([]Payout, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT recipient, amount, kind, at
    FROM payouts
    WHERE stream_id = $1
    ORDER BY id
  `, int64(streamID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payout
	for rows.Next() {
		var (
			p         Payout
			recipient string
			kind      string
			amount    pgtype.Numeric
		)
		if err := rows.Scan(&recipient, &amount, &kind, &p.At); err != nil {
			return nil, err
		}
		if p.Amount, err = fromNumeric(amount); err != nil {
			return nil, err
		}
		p.StreamID = ptr(streamID)
		p.Recipient = address.Address(recipient)
		p.Kind = PayoutKind(kind)
		out = append(out, p)
	}
	return out, rows.Err()
}
