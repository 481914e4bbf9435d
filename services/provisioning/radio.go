//go:build !rp2040 && !rp2350

package provisioning

import (
	"context"
	"os/exec"
	"strings"

	"github.com/google/shlex"

	"ringlight-go/errcode"
)

// CommandRadio drives the Wi-Fi interface through platform commands such as
// nmcli. Templates are split like a shell would; {ssid} and {password} are
// substituted per argument, so values containing spaces stay one argument.
type CommandRadio struct {
	JoinCommand    string
	APCommand      string
	AddressCommand string

	Run func(ctx context.Context, argv []string) ([]byte, error)
}

func NewCommandRadio(join, ap, address string) *CommandRadio {
	return &CommandRadio{JoinCommand: join, APCommand: ap, AddressCommand: address, Run: runCommand}
}

func runCommand(ctx context.Context, argv []string) ([]byte, error) {
	return exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
}

func (r *CommandRadio) Join(ctx context.Context, c Credentials) error {
	out, err := r.exec(ctx, r.JoinCommand, c.SSID, c.Password)
	if err != nil {
		return withOutput(errcode.JoinFailed, "radio.join", out, err)
	}
	return nil
}

func (r *CommandRadio) StartAP(ctx context.Context, ssid string) error {
	out, err := r.exec(ctx, r.APCommand, ssid, "")
	if err != nil {
		return withOutput(errcode.Error, "radio.ap", out, err)
	}
	return nil
}

// Address returns the first address the command prints.
func (r *CommandRadio) Address(ctx context.Context) (string, error) {
	out, err := r.exec(ctx, r.AddressCommand, "", "")
	if err != nil {
		return "", withOutput(errcode.Error, "radio.address", out, err)
	}
	f := strings.Fields(string(out))
	if len(f) == 0 {
		return "", &errcode.E{C: errcode.NotFound, Op: "radio.address", Msg: "no address assigned"}
	}
	return f[0], nil
}

func (r *CommandRadio) exec(ctx context.Context, tmpl, ssid, password string) ([]byte, error) {
	argv, err := expand(tmpl, ssid, password)
	if err != nil {
		return nil, err
	}
	if r.Run == nil {
		r.Run = runCommand
	}
	return r.Run(ctx, argv)
}

func expand(tmpl, ssid, password string) ([]string, error) {
	if strings.TrimSpace(tmpl) == "" {
		return nil, &errcode.E{C: errcode.Unsupported, Op: "radio", Msg: "no command configured"}
	}
	args, err := shlex.Split(tmpl)
	if err != nil {
		return nil, errcode.Wrap(errcode.InvalidParams, "radio", err)
	}
	rep := strings.NewReplacer("{ssid}", ssid, "{password}", password)
	out := make([]string, 0, len(args))
	for i, a := range args {
		// An open network drops "{password}" together with the flag naming it.
		if a == "{password}" && password == "" {
			if i > 0 && !strings.Contains(args[i-1], "{") {
				out = out[:len(out)-1]
			}
			continue
		}
		out = append(out, rep.Replace(a))
	}
	return out, nil
}

func withOutput(c errcode.Code, op string, out []byte, err error) error {
	if e, ok := err.(*errcode.E); ok {
		return e
	}
	msg := strings.TrimSpace(string(out))
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return &errcode.E{C: c, Op: op, Msg: msg, Err: err}
}
