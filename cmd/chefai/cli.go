package main

import (
	"bufio"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/chefai/internal/config"
	"github.com/hpungsan/chefai/internal/errors"
	"github.com/hpungsan/chefai/internal/ops"
	"github.com/hpungsan/chefai/internal/recipe"
	"github.com/hpungsan/chefai/internal/web"
)

// appEnv holds the wired dependencies shared by all commands.
type appEnv struct {
	o   *ops.Orchestrator
	cfg *config.Config
	log *zap.Logger
}

// newCLIApp creates the CLI application with all commands.
// env may be nil when only help or version output is needed.
func newCLIApp(env *appEnv) *cli.App {
	app := &cli.App{
		Name:    "chefai",
		Usage:   "Recipes from the ingredients you have",
		Version: Version,
		Commands: []*cli.Command{
			signInCmd(env),
			signUpCmd(env),
			logoutCmd(env),
			statusCmd(env),
			generateCmd(env),
			historyCmd(env),
			showCmd(env),
			serveCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// signInCmd creates the signin command.
func signInCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "signin",
		Usage: "Sign in (reads the password from stdin when piped)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Account username"},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Account password (prefer stdin)"},
		},
		Action: func(c *cli.Context) error {
			password, err := passwordInput(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.SignIn(c.Context, env.o, ops.SignInInput{
				Username: c.String("username"),
				Password: password,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// signUpCmd creates the signup command.
func signUpCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "signup",
		Usage: "Create an account and sign in (reads the password from stdin when piped)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Desired username"},
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Email address"},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Password (prefer stdin)"},
		},
		Action: func(c *cli.Context) error {
			password, err := passwordInput(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.SignUp(c.Context, env.o, ops.SignUpInput{
				Username: c.String("username"),
				Email:    c.String("email"),
				Password: password,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// logoutCmd creates the logout command.
func logoutCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Forget the stored session",
		Action: func(c *cli.Context) error {
			output, err := ops.Logout(env.o)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// statusCmd creates the status command.
func statusCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show whether a session is stored",
		Action: func(c *cli.Context) error {
			return outputJSON(ops.Status(env.o))
		},
	}
}

// recipeFlags are shared by commands that end with a displayed recipe.
func recipeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "recalc", Usage: "Recalculate nutrition for the recipe"},
		&cli.BoolFlag{Name: "export", Usage: "Export the recipe as PDF to the exports directory"},
		&cli.BoolFlag{Name: "markdown", Aliases: []string{"md"}, Usage: "Print the recipe as markdown instead of JSON"},
	}
}

// generateCmd creates the generate command.
func generateCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Usage:     "Generate a recipe from ingredients (arguments or stdin)",
		ArgsUsage: "[ingredients...]",
		Flags:     recipeFlags(),
		Action: func(c *cli.Context) error {
			ingredients := strings.Join(c.Args().Slice(), " ")
			if ingredients == "" && stdinHasData() {
				text, err := readStdin()
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				ingredients = text
			}

			if _, err := ops.Generate(c.Context, env.o, ops.GenerateInput{Ingredients: ingredients}); err != nil {
				return outputError(err)
			}
			return finishRecipe(c, env)
		},
	}
}

// historyCmd creates the history command.
func historyCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List previously generated recipes",
		Action: func(c *cli.Context) error {
			output, err := ops.EnterHistory(c.Context, env.o)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output.Items)
		},
	}
}

// showCmd creates the show command.
func showCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a recipe from history",
		ArgsUsage: "<id>",
		Flags:     recipeFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewValidation("exactly one recipe id is required"))
			}
			if _, err := ops.EnterHistory(c.Context, env.o); err != nil {
				return outputError(err)
			}
			if _, err := ops.SelectHistory(env.o, c.Args().First()); err != nil {
				return outputError(err)
			}
			return finishRecipe(c, env)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the browser UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Listen address (default from config)"},
			&cli.IntFlag{Name: "port", Usage: "Listen port (default from config)"},
		},
		Action: func(c *cli.Context) error {
			bind, port := env.cfg.WebBind, env.cfg.WebPort
			if c.IsSet("bind") {
				bind = c.String("bind")
			}
			if c.IsSet("port") {
				port = c.Int("port")
			}
			if port <= 0 || port > 65535 {
				return outputError(errors.NewValidation(fmt.Sprintf("invalid port: %d", port)))
			}
			srv := web.NewServer(env.o, Version, bind, port, env.log)
			return web.Run(srv, env.log)
		},
	}
}

// recipeResult is the CLI output for generate and show.
type recipeResult struct {
	Source       ops.Source             `json:"source"`
	Recipe       recipe.Recipe          `json:"recipe"`
	Recalculated *ops.RecalculateOutput `json:"recalculated,omitempty"`
	Exported     *ops.ExportOutput      `json:"exported,omitempty"`
}

// finishRecipe runs the optional follow-up actions on the displayed recipe and prints it.
func finishRecipe(c *cli.Context, env *appEnv) error {
	var result recipeResult

	if c.Bool("recalc") {
		out, err := ops.RecalculateNutrition(c.Context, env.o, ops.RecalculateInput{})
		if err != nil {
			return outputError(err)
		}
		result.Recalculated = out
	}
	if c.Bool("export") {
		out, err := ops.ExportDocument(c.Context, env.o, ops.ExportInput{Save: true})
		if err != nil {
			return outputError(err)
		}
		result.Exported = out
	}

	view, ok := env.o.Active()
	if !ok {
		return outputError(errors.NewNoActiveRecipe())
	}
	result.Source = view.Source
	result.Recipe = view.Recipe

	if c.Bool("markdown") {
		_, err := fmt.Fprint(os.Stdout, view.Recipe.Markdown())
		if result.Exported != nil {
			fmt.Fprintf(os.Stderr, "saved %s\n", result.Exported.Path)
		}
		return err
	}
	return outputJSON(result)
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var chefErr *errors.ChefError
	if stderrors.As(err, &chefErr) {
		msg := fmt.Sprintf("[%s] %s", chefErr.Code, chefErr.Message)
		if chefErr.Code == errors.ErrUnauthorized {
			msg += " (run 'chefai signin')"
		}
		return cli.Exit(msg, 1)
	}
	return cli.Exit(err.Error(), 1)
}

// passwordInput returns the --password flag, or the first line of piped stdin.
func passwordInput(c *cli.Context) (string, error) {
	if p := c.String("password"); p != "" {
		return p, nil
	}
	if !stdinHasData() {
		return "", errors.NewValidation("password must be given with --password or piped via stdin")
	}
	return readLine(os.Stdin)
}

// readLine reads one line without its line ending.
func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", errors.NewInternal(err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

