package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/utafrali/storefront/internal/app"
	"github.com/utafrali/storefront/internal/auth"
	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

type cmdEnv struct {
	app   *app.App
	ui    *terminal
	out   io.Writer
	flags *flag.FlagSet
}

type command struct {
	usage   string
	summary string
	// notifies is set when the command already told the user about its
	// failure through the notifier.
	notifies bool
	run      func(ctx context.Context, env *cmdEnv, args []string) error
}

var commands = map[string]command{
	"login":           {usage: "--email E --password P [--redirect ROUTE]", summary: "sign in with email and password", notifies: true, run: cmdLogin},
	"register":        {usage: "--name N --email E --phone P --password P --confirm P --address A [--seller]", summary: "create an account", notifies: true, run: cmdRegister},
	"logout":          {usage: "", summary: "sign out", notifies: true, run: cmdLogout},
	"whoami":          {usage: "[--json]", summary: "show the signed-in user", run: cmdWhoami},
	"idp-login":       {usage: "--email E --id-token T [--name N] [--redirect ROUTE]", summary: "sign in with an identity provider token", notifies: true, run: cmdIdentityLogin},
	"wishlist":        {usage: "[--all]", summary: "list wishlist items", run: cmdWishlist},
	"wishlist-add":    {usage: "PRODUCT_ID", summary: "add a product to the wishlist", run: cmdWishlistAdd},
	"wishlist-remove": {usage: "PRODUCT_ID", summary: "remove a product from the wishlist", run: cmdWishlistRemove},
	"profile-set":     {usage: "name|email|phone VALUE", summary: "change a profile field", run: cmdProfileSet},
	"doctor":          {usage: "", summary: "check storage and API connectivity", run: cmdDoctor},
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: storefront <command> [flags]")
	fmt.Fprintln(w)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(tw, "  %s\t%s\n", name, commands[name].summary)
	}
	_ = tw.Flush()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "configuration is read from STOREFRONT_* environment variables; STOREFRONT_API_BASE_URL is required")
}

func cmdLogin(ctx context.Context, env *cmdEnv, args []string) error {
	email := env.flags.String("email", "", "account email")
	password := env.flags.String("password", "", "account password")
	redirect := env.flags.String("redirect", "", "route to open after signing in")
	if err := env.flags.Parse(args); err != nil {
		return err
	}

	if sess := env.app.Sessions.Get(); sess.Authenticated() {
		env.ui.Info(fmt.Sprintf("Already signed in as %s (%s)", sess.Email(), auth.DashboardRoute(sess)))
		return nil
	}
	return env.app.Auth.Login(ctx, auth.LoginInput{
		Email:    *email,
		Password: *password,
		Redirect: domain.Route(*redirect),
	})
}

func cmdRegister(ctx context.Context, env *cmdEnv, args []string) error {
	var in auth.RegisterInput
	env.flags.StringVar(&in.Name, "name", "", "full name")
	env.flags.StringVar(&in.Email, "email", "", "email")
	env.flags.StringVar(&in.Phone, "phone", "", "10 digit phone number")
	env.flags.StringVar(&in.Password, "password", "", "password")
	env.flags.StringVar(&in.ConfirmPassword, "confirm", "", "password again")
	env.flags.StringVar(&in.Address, "address", "", "postal address")
	env.flags.BoolVar(&in.IsSeller, "seller", false, "register as a seller")
	if err := env.flags.Parse(args); err != nil {
		return err
	}
	return env.app.Auth.Register(ctx, in)
}

func cmdLogout(ctx context.Context, env *cmdEnv, args []string) error {
	if err := env.flags.Parse(args); err != nil {
		return err
	}
	return env.app.Auth.Logout(ctx)
}

func cmdWhoami(_ context.Context, env *cmdEnv, args []string) error {
	asJSON := env.flags.Bool("json", false, "print the user as JSON")
	if err := env.flags.Parse(args); err != nil {
		return err
	}

	sess := env.app.Sessions.Get()
	if !sess.Authenticated() {
		return apperrors.NotAuthenticated("no session")
	}
	if *asJSON {
		enc := json.NewEncoder(env.out)
		enc.SetIndent("", "  ")
		return enc.Encode(sess.User)
	}

	tw := tabwriter.NewWriter(env.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "id\t%s\n", sess.User.ID)
	fmt.Fprintf(tw, "name\t%s\n", sess.User.Name)
	fmt.Fprintf(tw, "email\t%s\n", sess.User.Email)
	fmt.Fprintf(tw, "phone\t%s\n", sess.User.Phone)
	fmt.Fprintf(tw, "seller\t%t\n", sess.User.IsSeller)
	fmt.Fprintf(tw, "dashboard\t%s\n", auth.DashboardRoute(sess))
	return tw.Flush()
}

func cmdIdentityLogin(ctx context.Context, env *cmdEnv, args []string) error {
	var a auth.Assertion
	env.flags.StringVar(&a.Email, "email", "", "email asserted by the identity provider")
	env.flags.StringVar(&a.Name, "name", "", "display name")
	env.flags.StringVar(&a.IDToken, "id-token", "", "identity provider ID token")
	redirect := env.flags.String("redirect", "", "route to open after signing in")
	if err := env.flags.Parse(args); err != nil {
		return err
	}

	if a.IDToken == "" && env.app.Auth.ResumeIdentity(ctx, domain.Route(*redirect)) {
		email, _ := env.app.Sessions.RememberedIdentity(ctx)
		env.ui.Info(fmt.Sprintf("Welcome back %s", email))
		return nil
	}
	return env.app.Auth.LoginWithIdentityProvider(ctx, auth.StaticAssertion(a), domain.Route(*redirect))
}

func cmdWishlist(ctx context.Context, env *cmdEnv, args []string) error {
	all := env.flags.Bool("all", false, "load every page")
	if err := env.flags.Parse(args); err != nil {
		return err
	}

	sess, err := requireCustomer(env)
	if err != nil {
		return err
	}
	loader := env.app.Wishlist
	if *all {
		err = loader.LoadAll(ctx, sess)
	} else {
		err = loader.Start(ctx, sess)
	}
	if err != nil {
		return err
	}

	v := loader.View()
	tw := tabwriter.NewWriter(env.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tDISCOUNT\tRATING")
	for _, it := range v.Items {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.2f\t%.1f (%d)\n", it.ID, it.Name, it.Price, it.DiscountPrice, it.Ratings, it.Reviews)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(env.out, "\n%d of %d items", len(v.Items), v.TotalCount)
	if v.HasMore {
		fmt.Fprint(env.out, " (more available, use --all)")
	}
	fmt.Fprintln(env.out)
	return nil
}

func cmdWishlistAdd(ctx context.Context, env *cmdEnv, args []string) error {
	if err := env.flags.Parse(args); err != nil {
		return err
	}
	id, err := productArg(env.flags)
	if err != nil {
		return err
	}
	if _, err := requireCustomer(env); err != nil {
		return err
	}
	if err := env.app.API.AddToWishlist(ctx, id); err != nil {
		return err
	}
	env.ui.Success("Added to wishlist")
	return nil
}

func cmdWishlistRemove(ctx context.Context, env *cmdEnv, args []string) error {
	if err := env.flags.Parse(args); err != nil {
		return err
	}
	id, err := productArg(env.flags)
	if err != nil {
		return err
	}
	sess, err := requireCustomer(env)
	if err != nil {
		return err
	}

	loader := env.app.Wishlist
	if err := loader.LoadAll(ctx, sess); err != nil {
		return err
	}
	if err := loader.RemoveItem(ctx, id); err != nil {
		return err
	}
	env.ui.Success("Removed from wishlist")
	fmt.Fprintf(env.out, "%d items left\n", loader.View().TotalCount)
	return nil
}

func cmdProfileSet(ctx context.Context, env *cmdEnv, args []string) error {
	if err := env.flags.Parse(args); err != nil {
		return err
	}
	if env.flags.NArg() != 2 {
		env.flags.Usage()
		return apperrors.Validation("profile-set needs a field and a value")
	}
	field, err := domain.ParseField(strings.ToLower(env.flags.Arg(0)))
	if err != nil {
		return apperrors.Validation(err.Error())
	}

	ctrl := env.app.Profile
	if err := ctrl.BeginEdit(field); err != nil {
		return err
	}
	if err := ctrl.SetDraft(field, env.flags.Arg(1)); err != nil {
		return err
	}
	user, err := ctrl.Commit(ctx, field, ctrl.Field(field).Draft)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.out, "%s: %s\n", field, user.Value(field))
	return nil
}

func cmdDoctor(ctx context.Context, env *cmdEnv, args []string) error {
	if err := env.flags.Parse(args); err != nil {
		return err
	}

	resp := env.app.Health.Check(ctx)
	tw := tabwriter.NewWriter(env.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHECK\tSTATUS\tCRITICAL\tDURATION\tERROR")
	for _, name := range resp.Names() {
		c := resp.Checks[name]
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\n", name, c.Status, c.Critical, c.Duration.Round(time.Microsecond), c.Error)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(env.out, "\noverall: %s\n", resp.Status)

	if !resp.Healthy() {
		return apperrors.ServerError("health checks failed")
	}
	return nil
}

func requireCustomer(env *cmdEnv) (domain.Session, error) {
	sess := env.app.Sessions.Get()
	if !sess.Authenticated() {
		return domain.Session{}, apperrors.NotAuthenticated("no session")
	}
	if sess.IsAdmin() {
		return domain.Session{}, apperrors.Validation("Admin accounts have no wishlist.")
	}
	return sess, nil
}

func productArg(fs *flag.FlagSet) (string, error) {
	if fs.NArg() != 1 || fs.Arg(0) == "" {
		fs.Usage()
		return "", apperrors.Validation("a product id is required")
	}
	return fs.Arg(0), nil
}
