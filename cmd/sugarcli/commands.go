package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"sugarcrm-client/internal/adapter/mcpserver"
	"sugarcrm-client/internal/adapter/payload"
	"sugarcrm-client/internal/domain"
	"sugarcrm-client/internal/infra/config"
	"sugarcrm-client/internal/usecase/crm"
)

const defaultHistory = 20

func usageError(usage string) error {
	return domain.NewDomainError("sugarcli", domain.ErrInvalidInput, "usage: sugarcli "+usage)
}

func (a *app) runGet(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageError("get <module> <id>")
	}
	module, id := args[0], args[1]
	return a.withSession(ctx, func(c *crm.Client) error {
		bean, found, err := c.LoadBean(ctx, module, id)
		if err != nil {
			return err
		}
		if !found {
			fmt.Fprintf(a.out, "%s %s not found\n", module, id)
			return errNotFound
		}
		if a.jsonOut {
			return writeJSON(a.out, bean)
		}
		fmt.Fprintln(a.out, renderBean(bean))
		return nil
	})
}

func (a *app) runList(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return usageError("list <module> [options-json]")
	}
	var raw string
	if len(args) == 2 {
		raw = args[1]
	}
	options, err := payload.ParseOptions(raw)
	if err != nil {
		return err
	}
	return a.withSession(ctx, func(c *crm.Client) error {
		beans, err := c.LoadBeans(ctx, args[0], options)
		if err != nil {
			return err
		}
		return a.printBeans(beans)
	})
}

func (a *app) runGetIDs(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageError("get-ids <module> <ids>")
	}
	ids, err := payload.ParseIDs(args[1])
	if err != nil {
		return err
	}
	return a.withSession(ctx, func(c *crm.Client) error {
		beans, err := c.LoadBeansByIDs(ctx, args[0], ids)
		if err != nil {
			return err
		}
		return a.printBeans(beans)
	})
}

func (a *app) runSave(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageError("save <module> <fields-json>")
	}
	fields, err := payload.ParseFields(args[1])
	if err != nil {
		return err
	}
	return a.withSession(ctx, func(c *crm.Client) error {
		id, ok := c.SaveBeanID(ctx, args[0], fields)
		if !ok {
			return fmt.Errorf("saving %s record failed", args[0])
		}
		if a.jsonOut {
			return writeJSON(a.out, map[string]string{"id": id})
		}
		fmt.Fprintf(a.out, "saved %s %s\n", args[0], id)
		return nil
	})
}

func (a *app) runCall(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return usageError("call <method> [args-json]")
	}
	method := args[0]
	if method == domain.MethodLogin || method == domain.MethodLogout {
		return domain.NewDomainError("sugarcli", domain.ErrInvalidInput, method+" is run by every command")
	}
	var raw string
	if len(args) == 2 {
		raw = args[1]
	}
	callArgs, err := payload.ParseArgs(raw)
	if err != nil {
		return err
	}
	return a.withSession(ctx, func(c *crm.Client) error {
		v, err := c.Call(ctx, method, callArgs)
		if err != nil {
			return err
		}
		if v.IsNone() && !a.jsonOut {
			fmt.Fprintln(a.out, "no result")
			return nil
		}
		return writeJSON(a.out, v)
	})
}

// recentReader is implemented by audit backends that can be queried.
type recentReader interface {
	Recent(ctx context.Context, n int) ([]domain.AuditEvent, error)
}

func (a *app) runHistory(ctx context.Context, args []string) error {
	n := defaultHistory
	if len(args) > 1 {
		return usageError("history [n]")
	}
	if len(args) == 1 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 {
			return usageError("history [n]")
		}
		n = v
	}
	r, ok := a.audit.(recentReader)
	if !ok {
		return domain.NewDomainError("sugarcli", domain.ErrConfigLoad, "call history needs audit.enabled: true")
	}
	events, err := r.Recent(ctx, n)
	if err != nil {
		return err
	}
	if a.jsonOut {
		return writeJSON(a.out, events)
	}
	fmt.Fprintln(a.out, renderHistory(events))
	return nil
}

func (a *app) runMCP(ctx context.Context) error {
	c, err := connect(ctx, a.cfg, a.logger, a.audit)
	if err != nil {
		return err
	}
	defer c.Logout(context.WithoutCancel(ctx))

	a.logger.Info("serving MCP tools on stdio", "url", c.BaseURL())
	return mcpserver.New(c, version, a.logger).ServeStdio()
}

func runEncrypt(args []string, out io.Writer) error {
	if len(args) != 1 {
		return usageError("encrypt <value>")
	}
	passphrase := os.Getenv(config.EnvConfigKey)
	if passphrase == "" {
		return domain.NewDomainError("sugarcli", domain.ErrEncryption, config.EnvConfigKey+" is not set")
	}
	enc, err := config.EncryptSecret(args[0], passphrase)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, enc)
	return nil
}

func (a *app) printBeans(beans []domain.Bean) error {
	if a.jsonOut {
		return writeJSON(a.out, beans)
	}
	fmt.Fprintln(a.out, renderBeans(beans))
	return nil
}
