package main

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"maze.io/x/duration"

	"github.com/ts4z/wtapicks/admin"
	"github.com/ts4z/wtapicks/model"
	"github.com/ts4z/wtapicks/password"
	"github.com/ts4z/wtapicks/permission"
)

var (
	userNick    string
	userEmail   string
	userIsAdmin bool
	revokeAdmin bool

	expireTime time.Time
)

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	pwBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	pw := string(pwBytes)
	if pw == "" {
		return "", fmt.Errorf("password is required")
	}
	return pw, nil
}

func addUser(cmd *cobra.Command, args []string) error {
	ctx := permission.SystemContext(context.Background())
	storage := openStorage(ctx)
	defer storage.Close()
	users := permission.NewUserStorage(storage)

	if userNick == "" || userEmail == "" {
		return fmt.Errorf("nick and email are required")
	}

	pw, err := readPassword("Enter password: ")
	if err != nil {
		return err
	}
	if err := password.CheckStrength(pw); err != nil {
		return err
	}

	if _, err := users.CreateUser(ctx, userNick, userEmail, password.Hash(pw), userIsAdmin); err != nil {
		return fmt.Errorf("creating user: %w", err)
	}

	fmt.Printf("User %q added successfully.\n", userNick)
	return nil
}

func listUsers(cmd *cobra.Command, args []string) error {
	ctx := permission.SystemContext(context.Background())
	storage := openStorage(ctx)
	defer storage.Close()

	users, err := permission.NewUserStorage(storage).FetchUsers(ctx)
	if err != nil {
		return fmt.Errorf("fetching users: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)

	fmt.Fprintf(w, "id\tnick\temail\tadmin\thidden\tbonus\tpoints\tpicks\n")
	for _, user := range users {
		fmt.Fprintf(w, "%d\t%s\t%s\t%v\t%v\t%d\t%d\t%d\n", user.ID, user.Nick, user.Email,
			user.IsAdmin, user.HiddenFromLeaderboard, user.StartingPoints, user.TotalPoints, user.PickCount)
	}
	w.Flush()
	return nil
}

func deleteUser(cmd *cobra.Command, args []string) error {
	ctx := permission.SystemContext(context.Background())
	storage := openStorage(ctx)
	defer storage.Close()

	nick := args[0]

	if err := permission.NewUserStorage(storage).DeleteUserByNick(ctx, nick); err != nil {
		return fmt.Errorf("deleting user %q: %w", nick, err)
	}

	return nil
}

func setAdmin(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	storage := openStorage(ctx)
	defer storage.Close()

	nick := args[0]
	row, err := storage.FetchUserRow(ctx, nick)
	if err != nil {
		return fmt.Errorf("fetching user %q: %w", nick, err)
	}

	svc := admin.New(&admin.Config{Storage: storage, Users: permission.NewUserStorage(storage)})
	isAdmin := !revokeAdmin
	u, err := svc.PatchUser(ctx, permission.System, row.ID, &model.UserPatch{IsAdmin: &isAdmin})
	if err != nil {
		return err
	}
	fmt.Printf("User %q admin=%v.\n", u.Nick, u.IsAdmin)
	return nil
}

func checkPassword(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	storage := openStorage(ctx)
	defer storage.Close()

	nick := args[0]

	pw, err := readPassword("Enter password: ")
	if err != nil {
		return err
	}

	userRow, err := storage.FetchUserRow(ctx, nick)
	if err != nil {
		return fmt.Errorf("fetching user %q: %w", nick, err)
	}

	checker, err := password.NewChecker(userRow, clock.Now())
	if err != nil {
		return fmt.Errorf("setting up password checker: %w", err)
	}

	if _, err = checker.Validate(pw); err != nil {
		fmt.Printf("error: %v\n", err)
		return nil
	}

	fmt.Printf("ok\n")
	return nil
}

func cleanPasswords(cmd *cobra.Command, args []string) error {
	ctx := permission.SystemContext(context.Background())
	storage := openStorage(ctx)
	defer storage.Close()

	return permission.NewUserStorage(storage).RemoveExpiredPasswords(ctx, clock.Now())
}

func addPassword(cmd *cobra.Command, args []string) error {
	ctx := permission.SystemContext(context.Background())
	storage := openStorage(ctx)
	defer storage.Close()

	nick := args[0]

	userRow, err := storage.FetchUserRow(ctx, nick)
	if err != nil {
		return fmt.Errorf("fetching user %q: %w", nick, err)
	}

	pw, err := readPassword("Enter password: ")
	if err != nil {
		return err
	}

	if err := permission.NewUserStorage(storage).AddPassword(ctx, userRow.ID, password.Hash(pw)); err != nil {
		return fmt.Errorf("adding password for user %q: %w", nick, err)
	}

	fmt.Printf("Password added successfully for user %q.\n", nick)
	return nil
}

func replacePassword(cmd *cobra.Command, args []string) error {
	ctx := permission.SystemContext(context.Background())
	storage := openStorage(ctx)
	defer storage.Close()

	nick := args[0]

	userRow, err := storage.FetchUserRow(ctx, nick)
	if err != nil {
		return fmt.Errorf("fetching user %q: %w", nick, err)
	}

	pw, err := readPassword("Enter new password: ")
	if err != nil {
		return err
	}
	if err := password.CheckStrength(pw); err != nil {
		return err
	}

	if expireTime.IsZero() {
		expireTime = clock.Now()
	}
	err = permission.NewUserStorage(storage).ReplacePassword(ctx, userRow.ID, password.Hash(pw), expireTime)
	if err != nil {
		return fmt.Errorf("replacing password for user %q: %w", nick, err)
	}

	fmt.Printf("Password replaced successfully for user %q. Old passwords expire at %v.\n", nick, expireTime)
	return nil
}

// parseExpireTime takes RFC3339 or a duration from now, like "7d".
func parseExpireTime(s string) error {
	if s == "" {
		expireTime = clock.Now()
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		expireTime = t
		return nil
	}
	d, err := duration.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("can't parse %q as a time or duration", s)
	}
	expireTime = clock.Now().Add(time.Duration(d))
	return nil
}

func userCommand() *cobra.Command {
	userCmd := &cobra.Command{
		Short: "Manage users",
		Use:   "user",
	}

	addUserCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a new user",
		RunE:  addUser,
	}
	addUserCmd.Flags().StringVar(&userNick, "nick", "", "User's nick")
	addUserCmd.Flags().StringVar(&userEmail, "email", "", "User's email address")
	addUserCmd.Flags().BoolVar(&userIsAdmin, "admin", false, "Set user as admin")

	deleteUserCmd := &cobra.Command{
		Use:   "delete [nick]",
		Short: "Delete a user and their picks",
		Args:  cobra.ExactArgs(1),
		RunE:  deleteUser,
	}

	listUserCmd := &cobra.Command{
		Use:   "list",
		Short: "List all users",
		RunE:  listUsers,
	}

	adminCmd := &cobra.Command{
		Use:   "admin [nick]",
		Short: "Grant or revoke admin",
		Args:  cobra.ExactArgs(1),
		RunE:  setAdmin,
	}
	adminCmd.Flags().BoolVar(&revokeAdmin, "revoke", false, "Revoke admin instead of granting it")

	pwCmd := &cobra.Command{
		Use:   "pw",
		Short: "Password-related operations for users",
	}

	checkCmd := &cobra.Command{
		Use:   "check [nick]",
		Short: "Check a user's password",
		Args:  cobra.ExactArgs(1),
		RunE:  checkPassword,
	}

	cleanCmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove expired passwords",
		RunE:  cleanPasswords,
	}

	addPasswordCmd := &cobra.Command{
		Use:   "add [nick]",
		Short: "Add a password for a user",
		Args:  cobra.ExactArgs(1),
		RunE:  addPassword,
	}

	replacePasswordCmd := &cobra.Command{
		Use:   "replace [nick]",
		Short: "Replace a user's password and expire old passwords",
		Args:  cobra.ExactArgs(1),
		RunE:  replacePassword,
	}
	replacePasswordCmd.Flags().Func("expire-time", "Expiration time for old passwords (RFC3339, or a duration from now)", parseExpireTime)

	pwCmd.AddCommand(checkCmd, cleanCmd, addPasswordCmd, replacePasswordCmd)
	userCmd.AddCommand(addUserCmd, listUserCmd, deleteUserCmd, adminCmd, pwCmd)
	return userCmd
}
