package session_test

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"atm/internal/cashbox"
	"atm/internal/pin"
	"atm/internal/session"
)

type atmTestContext struct {
	box         *cashbox.CashBox
	balances    map[string]int
	unavailable bool
	machine     *session.Machine
}

func (c *atmTestContext) reset() {
	c.box = nil
	c.balances = map[string]int{}
	c.unavailable = false
	c.machine = nil
}

func (c *atmTestContext) validate(_ context.Context, p string) (int, error) {
	if c.unavailable {
		return 0, fmt.Errorf("%w: status 503", pin.ErrServiceUnavailable)
	}
	if b, ok := c.balances[p]; ok {
		return b, nil
	}
	return 0, pin.ErrCredentialsRejected
}

// atm 延遲建立 Machine，讓 Given 步驟先設定好鈔匣與帳戶。
func (c *atmTestContext) atm() *session.Machine {
	if c.machine == nil {
		c.machine = session.NewMachine(c.box, pin.ValidatorFunc(c.validate))
	}
	return c.machine
}

func (c *atmTestContext) theCashBoxHolds(twenties, tens, fives int) error {
	box, err := cashbox.New(twenties, tens, fives)
	if err != nil {
		return err
	}
	c.box = box
	return nil
}

func (c *atmTestContext) theAccountHasABalanceOf(p string, balance int) error {
	c.balances[p] = balance
	return nil
}

func (c *atmTestContext) thePINServiceIsUnavailable() error {
	c.unavailable = true
	return nil
}

func (c *atmTestContext) iEnterPIN(p string) error {
	m := c.atm()
	for _, r := range p {
		m.Digit(int(r - '0'))
	}
	m.Wait()
	return nil
}

func (c *atmTestContext) iWithdraw(amount int) error {
	m := c.atm()
	for _, r := range strconv.Itoa(amount) {
		m.Digit(int(r - '0'))
	}
	m.Enter()
	return nil
}

func (c *atmTestContext) iPress(key string) error {
	ev, err := session.ParseKey(key)
	if err != nil {
		return err
	}
	c.atm().Dispatch(context.Background(), ev)
	return nil
}

func (c *atmTestContext) iAmAuthenticatedWithABalanceOf(balance int) error {
	s := c.atm().Snapshot()
	if !s.Authenticated {
		return fmt.Errorf("expected authenticated session, state %s", s.State())
	}
	if s.Balance != balance {
		return fmt.Errorf("expected balance %d, got %d", balance, s.Balance)
	}
	return nil
}

func (c *atmTestContext) iAmNotAuthenticated() error {
	if c.atm().Snapshot().Authenticated {
		return fmt.Errorf("expected unauthenticated session")
	}
	return nil
}

func (c *atmTestContext) theNotesDispensedAre(list string) error {
	got := c.atm().Snapshot().DispensedNotes
	parts := make([]string, len(got))
	for i, n := range got {
		parts[i] = strconv.Itoa(n)
	}
	if strings.Join(parts, ",") != list {
		return fmt.Errorf("expected notes %s, got %v", list, got)
	}
	return nil
}

func (c *atmTestContext) myBalanceIs(balance int) error {
	if got := c.atm().Snapshot().Balance; got != balance {
		return fmt.Errorf("expected balance %d, got %d", balance, got)
	}
	return nil
}

func (c *atmTestContext) theCashBoxHoldsAfter(twenties, tens, fives int) error {
	want := cashbox.Inventory{Twenties: twenties, Tens: tens, Fives: fives}
	if got := c.atm().Inventory(); got != want {
		return fmt.Errorf("expected inventory %+v, got %+v", want, got)
	}
	return nil
}

func (c *atmTestContext) iHaveUsedPINAttempts(n int) error {
	if got := c.atm().Snapshot().PINAttempts; got != n {
		return fmt.Errorf("expected %d PIN attempts, got %d", n, got)
	}
	return nil
}

func (c *atmTestContext) theCardIsLocked() error {
	if !c.atm().Snapshot().CardLocked {
		return fmt.Errorf("expected card to be locked")
	}
	return nil
}

func (c *atmTestContext) theScreenErrorIs(msg string) error {
	if got := c.atm().Snapshot().Error; got != msg {
		return fmt.Errorf("expected error %q, got %q", msg, got)
	}
	return nil
}

func (c *atmTestContext) theSessionIsDone() error {
	if !c.atm().Snapshot().Done {
		return fmt.Errorf("expected session to be done")
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &atmTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^the cash box holds (\d+) twenties, (\d+) tens and (\d+) fives$`, func(tw, te, fi int) error {
		if tc.machine == nil {
			return tc.theCashBoxHolds(tw, te, fi)
		}
		return tc.theCashBoxHoldsAfter(tw, te, fi)
	})
	ctx.Step(`^the account with PIN "(\d{4})" has a balance of (-?\d+)$`, tc.theAccountHasABalanceOf)
	ctx.Step(`^the PIN service is unavailable$`, tc.thePINServiceIsUnavailable)

	// When steps
	ctx.Step(`^I enter PIN "(\d{4})"$`, tc.iEnterPIN)
	ctx.Step(`^I withdraw (\d+)$`, tc.iWithdraw)
	ctx.Step(`^I press "([^"]*)"$`, tc.iPress)

	// Then steps
	ctx.Step(`^I am authenticated with a balance of (-?\d+)$`, tc.iAmAuthenticatedWithABalanceOf)
	ctx.Step(`^I am not authenticated$`, tc.iAmNotAuthenticated)
	ctx.Step(`^the notes dispensed are "([^"]*)"$`, tc.theNotesDispensedAre)
	ctx.Step(`^my balance is (-?\d+)$`, tc.myBalanceIs)
	ctx.Step(`^I have used (\d+) PIN attempts$`, tc.iHaveUsedPINAttempts)
	ctx.Step(`^the card is locked$`, tc.theCardIsLocked)
	ctx.Step(`^the screen error is "([^"]*)"$`, tc.theScreenErrorIs)
	ctx.Step(`^the session is done$`, tc.theSessionIsDone)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
