package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/lecternhq/lectern-go/pkg/lectern"
)

func (app *Application) cmdLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "login email address")
	password := fs.String("password", "", "login password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return fmt.Errorf("login requires -email and -password")
	}

	s, err := app.manager.Login(ctx, *email, *password)
	if err != nil {
		if lectern.IsInvalidCredentials(err) {
			return fmt.Errorf("invalid email or password")
		}
		return err
	}

	fmt.Printf("signed in as %s\n", s.User.Email)
	return nil
}

func (app *Application) cmdRegister(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return fmt.Errorf("register requires -email and -password")
	}

	s, err := app.manager.Register(ctx, lectern.RegisterRequest{
		FirstName: *first,
		LastName:  *last,
		Email:     *email,
		Password:  *password,
	})
	if err != nil {
		return err
	}

	fmt.Printf("registered and signed in as %s\n", s.User.Email)
	return nil
}

func (app *Application) cmdLogout(ctx context.Context) error {
	app.manager.Logout(ctx)
	fmt.Println("signed out")
	return nil
}

func (app *Application) cmdWhoami(ctx context.Context) error {
	if !app.manager.IsAuthenticated() {
		return fmt.Errorf("not signed in")
	}

	user, err := app.manager.CurrentUser(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("%s %s <%s> (id %d)\n", user.FirstName, user.LastName, user.Email, user.ID)
	return nil
}

func (app *Application) cmdCourses(ctx context.Context, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
		args = args[1:]
	}

	switch sub {
	case "list":
		return app.coursesList(ctx, args)
	case "create":
		return app.coursesCreate(ctx, args)
	case "delete":
		return app.coursesDelete(ctx, args)
	default:
		return fmt.Errorf("unknown courses subcommand: %s", sub)
	}
}

func (app *Application) coursesList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("courses list", flag.ContinueOnError)
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", 20, "page size")
	search := fs.String("search", "", "filter by title")
	if err := fs.Parse(args); err != nil {
		return err
	}

	result, err := app.manager.ListCourses(ctx, lectern.ListCoursesParams{
		Page:   *page,
		Limit:  *limit,
		Search: *search,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tDESCRIPTION")
	for _, c := range result.Courses {
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Title, c.Description)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("page %d of %d courses\n", result.Page, result.Total)
	return nil
}

func (app *Application) coursesCreate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("courses create", flag.ContinueOnError)
	title := fs.String("title", "", "course title")
	description := fs.String("description", "", "course description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *title == "" {
		return fmt.Errorf("courses create requires -title")
	}

	course, err := app.manager.CreateCourse(ctx, lectern.CourseInput{
		Title:       *title,
		Description: *description,
	})
	if err != nil {
		return err
	}

	fmt.Printf("created course %s\n", course.ID)
	return nil
}

func (app *Application) coursesDelete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: courses delete <course-id>")
	}

	if err := app.manager.DeleteCourse(ctx, args[0]); err != nil {
		return err
	}

	fmt.Printf("deleted course %s\n", args[0])
	return nil
}

func (app *Application) cmdUpload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	course := fs.String("course", "", "course ID to attach files to")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *course == "" || fs.NArg() == 0 {
		return fmt.Errorf("usage: upload -course <id> <files...>")
	}

	var files []lectern.ContentFile
	for _, path := range fs.Args() {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return err
		}

		kind, err := kindFromPath(path)
		if err != nil {
			return err
		}

		files = append(files, lectern.ContentFile{
			Name:   filepath.Base(path),
			Kind:   kind,
			Size:   info.Size(),
			Reader: f,
		})
	}

	uploaded, err := app.manager.UploadContent(ctx, *course, files, func(written, total int64) {
		fmt.Fprintf(os.Stderr, "\ruploading... %d%%", written*100/total)
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}

	for _, c := range uploaded {
		fmt.Printf("uploaded %s (%s)\n", c.Name, c.ID)
	}
	return nil
}

// kindFromPath classifies a file for upload by its extension.
func kindFromPath(path string) (lectern.ContentKind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return lectern.ContentPDF, nil
	case ".mp4", ".mov", ".webm":
		return lectern.ContentVideo, nil
	case ".png", ".jpg", ".jpeg", ".gif":
		return lectern.ContentImage, nil
	default:
		return "", fmt.Errorf("unsupported file type: %s", path)
	}
}
