package main

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/ligun0805/multisender/internal/notify"
)

func (a *app) readLine(prompt string) (string, bool) {
	fmt.Fprint(a.out, prompt)
	t, err := a.in.ReadString('\n')
	if err != nil && t == "" {
		return "", false
	}
	return strings.TrimSpace(t), true
}

func yes(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "y" || s == "yes"
}

// maskSecret hides the path and query of an RPC URL, where providers put API keys.
func maskSecret(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		if len(raw) <= 10 {
			return "***"
		}
		return raw[:6] + "…" + raw[len(raw)-4:]
	}
	if (u.Path == "" || u.Path == "/") && u.RawQuery == "" {
		return u.Scheme + "://" + u.Host
	}
	return u.Scheme + "://" + u.Host + "/…"
}

func isTerminal() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

// confirm is the operator's yes/no gate. Without a terminal the answer is
// no unless --yes was given.
func (a *app) confirm(prompt string) bool {
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, prompt)
	if a.assumeYes {
		fmt.Fprintln(a.out, "Confirmed by --yes.")
		return true
	}
	if a.stdin == os.Stdin && !isTerminal() {
		fmt.Fprintln(a.out, "No terminal to confirm on; rerun with --yes.")
		return false
	}
	ans, ok := a.readLine("Proceed? [y/N]: ")
	return ok && yes(ans)
}

func (a *app) printNotice(n notify.Notice) {
	var tag string
	switch n.Level {
	case notify.Success:
		tag = "[ok]"
	case notify.Danger:
		tag = "[error]"
	default:
		tag = "[info]"
	}
	fmt.Fprintln(a.out, tag, n.Message)
}
