// staff-token mints an access token for a staff member.  Login is handled
// by the staff directory in front of this service; the tool covers local
// terminals and smoke tests.
//
//	staff-token --staff-id 7 --role MANAGER --ttl 480
//
// The signing secret comes from --secret or JWT_SECRET (a .env file in the
// working directory is read first).
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/iliyamo/venue-operations/internal/middleware"
	"github.com/iliyamo/venue-operations/internal/utils"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	_ = godotenv.Load()

	var (
		staffID uint64
		role    string
		ttl     int
		secret  string
	)
	flagSet := pflag.NewFlagSet("staff-token", pflag.ContinueOnError)
	flagSet.Uint64Var(&staffID, "staff-id", 0, "staff member id (sub claim)")
	flagSet.StringVar(&role, "role", middleware.RoleStaff, "MANAGER or STAFF")
	flagSet.IntVar(&ttl, "ttl", envTTL(), "lifetime in minutes (default ACCESS_TOKEN_TTL_MIN)")
	flagSet.StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "signing secret (default JWT_SECRET)")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	if staffID == 0 {
		return errors.New("--staff-id is required")
	}
	role = strings.ToUpper(strings.TrimSpace(role))
	if role != middleware.RoleManager && role != middleware.RoleStaff {
		return fmt.Errorf("unknown role %q", role)
	}
	tok, err := utils.NewAccessToken(secret, staffID, role, ttl)
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(map[string]any{
		"access_token": tok.Token,
		"expires_at":   tok.Exp,
	})
}

func envTTL() int {
	if n, err := strconv.Atoi(os.Getenv("ACCESS_TOKEN_TTL_MIN")); err == nil && n > 0 {
		return n
	}
	return 60
}
