package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"social-feed-app/internal/api"
	"social-feed-app/internal/config"
	"social-feed-app/internal/feed"
	"social-feed-app/internal/search"
	"social-feed-app/internal/session"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Default server base URL; can be overridden with the FEEDAPP_SERVER env
// var, the --server flag or a config file.
var serverBaseURL = "http://localhost:8080"

func main() {
	configPath := flag.String("config", "", "Path to client config file")
	serverFlag := flag.String("server", "", "Override server base URL")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	timeout := 15 * time.Second
	sessionDir := defaultSessionDir()

	if *configPath != "" {
		cfg, err := config.LoadClient(*configPath)
		if err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
		if cfg.API.BaseURL != "" {
			serverBaseURL = cfg.API.BaseURL
		}
		timeout = cfg.API.Timeout()
		if cfg.Session.Dir != "" {
			sessionDir = cfg.Session.Dir
		}
		if cfg.Log.Level == "debug" {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
	}
	if env := os.Getenv("FEEDAPP_SERVER"); env != "" {
		serverBaseURL = strings.TrimRight(env, "/")
	}
	if *serverFlag != "" {
		serverBaseURL = strings.TrimRight(*serverFlag, "/")
	}

	sess, err := session.NewStore(sessionDir)
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}

	client := api.New(serverBaseURL, timeout, sess, func() {
		fmt.Println("Session expired. Sign in again with: feedapp login <email> <password>")
	})
	engine := feed.NewEngine(feed.NewStore(), client)
	app := &app{client: client, engine: engine, session: sess}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	if err := app.run(context.Background(), args); err != nil {
		fmt.Println("Error:", errorMessage(err))
		os.Exit(1)
	}
}

type app struct {
	client  *api.Client
	engine  *feed.Engine
	session *session.Store
}

func (a *app) run(ctx context.Context, args []string) error {
	switch args[0] {
	case "register":
		if len(args) < 4 {
			return errors.New("usage: register <email> <username> <password> [location]")
		}
		var location *string
		if len(args) > 4 {
			location = &args[4]
		}
		if err := a.client.Register(ctx, args[1], args[2], args[3], location); err != nil {
			return err
		}
		fmt.Println("Account created. Sign in with: feedapp login", args[1], "<password>")
		return nil

	case "login":
		if len(args) < 3 {
			return errors.New("usage: login <email> <password>")
		}
		if err := a.client.Login(ctx, args[1], args[2]); err != nil {
			return err
		}
		fmt.Println("Signed in.")
		return nil

	case "logout":
		a.session.Clear()
		a.engine.Logout()
		fmt.Println("Signed out.")
		return nil

	case "me":
		user, err := a.client.Me(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("#%d %s", user.ID, user.Username)
		if user.Location != nil {
			fmt.Printf(" (%s)", *user.Location)
		}
		fmt.Println()
		return nil

	case "feed":
		return a.showFeed(ctx)

	case "like":
		if len(args) < 2 {
			return errors.New("usage: like <post-id>")
		}
		postID, err := strconv.Atoi(args[1])
		if err != nil {
			return errors.New("post id must be a number")
		}
		return a.like(ctx, postID)

	case "follow":
		if len(args) < 2 {
			return errors.New("usage: follow <user-id>")
		}
		userID, err := strconv.Atoi(args[1])
		if err != nil {
			return errors.New("user id must be a number")
		}
		if err := a.engine.ToggleFollow(ctx, userID); err != nil {
			return err
		}
		if a.engine.Store().IsFollowing(userID) {
			fmt.Println("Following user", userID)
		} else {
			fmt.Println("Unfollowed user", userID)
		}
		return nil

	case "comment":
		if len(args) < 3 {
			return errors.New("usage: comment <post-id> <text>")
		}
		postID, err := strconv.Atoi(args[1])
		if err != nil {
			return errors.New("post id must be a number")
		}
		return a.comment(ctx, postID, strings.Join(args[2:], " "))

	case "post":
		if len(args) < 2 {
			return errors.New("usage: post <description> [image-file]")
		}
		return a.post(ctx, args[1], args[2:])

	case "search":
		return a.searchLoop(ctx)

	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (a *app) showFeed(ctx context.Context) error {
	if err := a.engine.Refresh(ctx); err != nil {
		return err
	}
	posts := a.engine.Store().Posts()
	if len(posts) == 0 {
		fmt.Println("Feed is empty.")
		return nil
	}
	for _, p := range posts {
		fmt.Printf("[%d] %s: %s (%d likes)\n", p.ID, p.Author.Username, p.Description, p.LikeCount())
		if p.MediaURL != nil {
			fmt.Println("    media:", *p.MediaURL)
		}
		for _, c := range p.Comments {
			fmt.Printf("    %s: %s\n", c.Author.Username, c.Text)
		}
	}
	return nil
}

func (a *app) like(ctx context.Context, postID int) error {
	if err := a.engine.LoadCurrentUser(ctx); err != nil {
		return err
	}
	if err := a.engine.Refresh(ctx); err != nil {
		return err
	}
	if err := a.engine.ToggleLike(ctx, postID); err != nil {
		return err
	}
	user, _ := a.engine.Store().CurrentUser()
	if a.engine.Store().IsLikedBy(postID, user.ID) {
		fmt.Println("Liked post", postID)
	} else {
		fmt.Println("Unliked post", postID)
	}
	return nil
}

func (a *app) comment(ctx context.Context, postID int, text string) error {
	if err := a.engine.LoadCurrentUser(ctx); err != nil {
		return err
	}
	if err := a.engine.Refresh(ctx); err != nil {
		return err
	}
	if err := a.engine.SubmitComment(ctx, postID, text); err != nil {
		return err
	}
	fmt.Println("Comment posted.")
	return nil
}

func (a *app) post(ctx context.Context, description string, rest []string) error {
	var mediaURL *string
	if len(rest) > 0 {
		f, err := os.Open(rest[0])
		if err != nil {
			return fmt.Errorf("failed to open image: %w", err)
		}
		defer f.Close()
		path, err := a.client.UploadImage(ctx, filepath.Base(rest[0]), f)
		if err != nil {
			return err
		}
		mediaURL = &path
	}
	post, err := a.client.CreatePost(ctx, description, mediaURL)
	if err != nil {
		return err
	}
	fmt.Println("Published post", post.ID)
	return nil
}

// searchLoop reads query input line by line; each line feeds the
// debouncer, so rapid lines collapse into one request.
func (a *app) searchLoop(ctx context.Context) error {
	deb := search.NewDebouncer(ctx, search.DefaultDelay, a.client.SearchUsers, func(err error) {
		fmt.Println("Search error:", errorMessage(err))
	})
	defer deb.Cancel()

	fmt.Println("Type a username to search, empty line to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			return nil
		}
		deb.Input(line)
		time.Sleep(search.DefaultDelay + 100*time.Millisecond)
		results := deb.Results()
		if len(results) == 0 {
			fmt.Println("No users found.")
			continue
		}
		for _, u := range results {
			fmt.Printf("#%d %s", u.ID, u.Username)
			if u.Location != nil {
				fmt.Printf(" (%s)", *u.Location)
			}
			fmt.Println()
		}
	}
}

// errorMessage picks the user-facing message for an error.
func errorMessage(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

func defaultSessionDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".feedapp"
	}
	return filepath.Join(home, ".feedapp")
}

func usage() {
	fmt.Println(`Usage: feedapp [flags] <command>

Commands:
  register <email> <username> <password> [location]
  login <email> <password>
  logout
  me
  feed
  like <post-id>
  follow <user-id>
  comment <post-id> <text>
  post <description> [image-file]
  search

Flags:
  --server <url>    Override server base URL
  --config <path>   Client config file`)
}
