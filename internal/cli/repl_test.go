package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubExec struct {
	loggedIn bool
	calls    []string
}

func (s *stubExec) record(name string) error {
	s.calls = append(s.calls, name)
	return nil
}

func (s *stubExec) isLoggedIn() bool                     { return s.loggedIn }
func (s *stubExec) Register(ctx context.Context) error   { return s.record("register") }
func (s *stubExec) Login(ctx context.Context) error      { return s.record("login") }
func (s *stubExec) Logout(ctx context.Context) error     { return s.record("logout") }
func (s *stubExec) WhoAmI(ctx context.Context) error     { return s.record("whoami") }
func (s *stubExec) Products(ctx context.Context) error   { return s.record("products") }
func (s *stubExec) AddProduct(ctx context.Context) error { return s.record("addproduct") }
func (s *stubExec) Sell(ctx context.Context) error       { return s.record("sell") }
func (s *stubExec) Sales(ctx context.Context) error      { return s.record("sales") }
func (s *stubExec) Expenses(ctx context.Context) error   { return s.record("expenses") }
func (s *stubExec) AddExpense(ctx context.Context) error { return s.record("addexpense") }
func (s *stubExec) Export(ctx context.Context) error     { return s.record("export") }
func (s *stubExec) Import(ctx context.Context) error     { return s.record("import") }
func (s *stubExec) Sync(ctx context.Context) error       { return s.record("sync") }

func runWithInput(t *testing.T, input string, stub *stubExec) []string {
	t.Helper()
	var output []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		parts := make([]string, 0, len(a))
		for _, v := range a {
			if s, ok := v.(string); ok {
				parts = append(parts, s)
			}
		}
		output = append(output, strings.Join(parts, " "))
		return 0, nil
	}
	defer func() { printlnFn = orig }()

	runREPL(context.Background(), stub, func() string { return "test" }, bufio.NewScanner(strings.NewReader(input)))
	return output
}

func TestREPL_DispatchesCommands(t *testing.T) {
	stub := &stubExec{loggedIn: true}
	runWithInput(t, "login\nproducts\nsell\nsync\nexit\n", stub)
	assert.Equal(t, []string{"login", "products", "sell", "sync"}, stub.calls)
}

func TestREPL_ShortAliases(t *testing.T) {
	stub := &stubExec{loggedIn: true}
	runWithInput(t, "p\nexit\n", stub)
	assert.Equal(t, []string{"products"}, stub.calls)
}

func TestREPL_UnknownCommandAndEOF(t *testing.T) {
	stub := &stubExec{}
	out := runWithInput(t, "frobnicate\n", stub)
	assert.Empty(t, stub.calls)
	assert.Contains(t, strings.Join(out, "\n"), "Unknown command:")
}

func TestREPL_HelpVariesWithLogin(t *testing.T) {
	out := strings.Join(runWithInput(t, "help\nexit\n", &stubExec{}), "\n")
	assert.Contains(t, out, "register, login")

	out = strings.Join(runWithInput(t, "help\nexit\n", &stubExec{loggedIn: true}), "\n")
	assert.Contains(t, out, "sell")
}
