package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"timetrack.app/timetrack/security"
)

// Mints an identity token for API testing without going through login.
func main() {
	id := flag.Int("id", 1, "worker id")
	username := flag.String("username", "admin", "username claim")
	fullName := flag.String("name", "Administrator", "full name claim")
	role := flag.String("role", "admin", "role claim (admin or collaborator)")
	ttl := flag.Int64("ttl", 8*3600, "token lifetime in seconds")
	flag.Parse()

	secret := os.Getenv("TIMETRACK_SIGNING_SECRET")
	if secret == "" {
		log.Fatal("TIMETRACK_SIGNING_SECRET is not set")
	}

	token, err := security.CreateIdentityToken(&security.Identity{
		ID:       int32(*id),
		Username: *username,
		FullName: *fullName,
		Role:     *role,
	}, secret, *ttl)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(token)
}
