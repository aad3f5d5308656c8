// Package coin keeps a per-user coin balance and lets users give coins to
// each other after confirming.
package coin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/linanwx/hypebot/core"
	"github.com/linanwx/hypebot/internal/runtimecfg"
	"github.com/linanwx/hypebot/logger"
	"github.com/linanwx/hypebot/store"
)

const storeKey = "coin"

var ErrInsufficientFunds = errors.New("insufficient funds")

// Bot is the part of the core the bank talks to.
type Bot interface {
	Reply(ctx context.Context, dest core.Destination, msg core.Message, opts ...core.ReplyOption)
	RequestConfirmation(ctx context.Context, user core.User, summary string, details core.Details, action core.ActionFunc, parse core.ParseFunc)
}

// Bank handles !balance and !give.
type Bank struct {
	bot      Bot
	store    store.Store
	starting int
}

// NewBank creates a bank. Users without a stored balance start with
// startingBalance coins; a negative value uses the default.
func NewBank(bot Bot, st store.Store, startingBalance int) *Bank {
	if startingBalance < 0 {
		startingBalance = runtimecfg.CoinDefaultStartingBalance
	}
	return &Bank{bot: bot, store: st, starting: startingBalance}
}

func (b *Bank) Handle(ctx context.Context, msg core.Inbound) bool {
	fields := strings.Fields(msg.Text)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToLower(fields[0]) {
	case "!balance":
		b.handleBalance(ctx, msg)
	case "!give":
		b.handleGive(ctx, msg, fields[1:])
	default:
		return false
	}
	return true
}

func (b *Bank) handleBalance(ctx context.Context, msg core.Inbound) {
	balance, err := b.Balance(ctx, msg.User)
	if err != nil {
		logger.Warn("coin balance lookup failed", "user", msg.User, "err", err)
		b.reply(ctx, msg, "Could not look up your balance.")
		return
	}
	b.reply(ctx, msg, fmt.Sprintf("%s has %d coins.", msg.User, balance))
}

func (b *Bank) handleGive(ctx context.Context, msg core.Inbound, args []string) {
	if len(args) != 2 {
		b.reply(ctx, msg, "Usage: !give <user> <amount>")
		return
	}
	to := core.User(strings.TrimPrefix(args[0], "@"))
	amount, err := strconv.Atoi(args[1])
	if err != nil || amount <= 0 {
		b.reply(ctx, msg, "Amount must be a positive whole number.")
		return
	}
	if strings.EqualFold(string(to), string(msg.User)) {
		b.reply(ctx, msg, "You can't give coins to yourself.")
		return
	}

	balance, err := b.Balance(ctx, msg.User)
	if err != nil {
		logger.Warn("coin balance lookup failed", "user", msg.User, "err", err)
		b.reply(ctx, msg, "Could not look up your balance.")
		return
	}
	if balance < amount {
		b.reply(ctx, msg, fmt.Sprintf("You only have %d coins.", balance))
		return
	}

	details := core.Details{
		"to":                  to,
		"amount":              amount,
		core.DetailActionText: fmt.Sprintf("Sending %d coins to %s.", amount, to),
	}
	summary := fmt.Sprintf("giving %d coins to %s", amount, to)
	b.bot.RequestConfirmation(ctx, msg.User, summary, details, b.completeGive(msg), nil)
}

func (b *Bank) completeGive(msg core.Inbound) core.ActionFunc {
	return func(ctx context.Context, user core.User, details core.Details) {
		to, _ := details["to"].(core.User)
		amount, _ := details["amount"].(int)
		if err := b.Transfer(ctx, user, to, amount); err != nil {
			logger.Warn("coin transfer failed", "from", user, "to", to, "amount", amount, "err", err)
			b.bot.Reply(ctx, user, core.Textf("Transfer failed: %v", err))
			return
		}
		b.reply(ctx, msg, fmt.Sprintf("%s gave %d coins to %s.", user, amount, to))
	}
}

// Balance returns user's current balance.
func (b *Bank) Balance(ctx context.Context, user core.User) (int, error) {
	raw, err := b.store.GetValue(ctx, storeKey, string(user))
	if errors.Is(err, store.ErrNotFound) {
		return b.starting, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(raw)
}

// Transfer moves amount coins from one user to another. The sender is
// refunded if crediting the recipient fails.
func (b *Bank) Transfer(ctx context.Context, from, to core.User, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	if err := b.adjust(ctx, from, -amount); err != nil {
		return err
	}
	if err := b.adjust(ctx, to, amount); err != nil {
		if refundErr := b.adjust(ctx, from, amount); refundErr != nil {
			logger.Error("coin refund failed", "user", from, "amount", amount, "err", refundErr)
		}
		return err
	}
	return nil
}

func (b *Bank) adjust(ctx context.Context, user core.User, delta int) error {
	return b.store.UpdateValue(ctx, storeKey, string(user), func(current string, found bool) (string, error) {
		balance := b.starting
		if found {
			var err error
			if balance, err = strconv.Atoi(current); err != nil {
				return "", fmt.Errorf("corrupt balance for %s: %w", user, err)
			}
		}
		if balance+delta < 0 {
			return "", ErrInsufficientFunds
		}
		return strconv.Itoa(balance + delta), nil
	})
}

func (b *Bank) reply(ctx context.Context, msg core.Inbound, text string) {
	b.bot.Reply(ctx, msg.Channel, core.Text(text), core.WithDefault(msg.User))
}
