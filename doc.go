/*
Package qbt is a typed client for the qBittorrent Web API v2.

Every operation is a Request: a kind naming the endpoint, its parameters
and local validation rules. Requests are validated before anything is
sent, and requests needing a session fail with ErrNotLoggedIn until Login
succeeded. The daemon's answer comes back as a Result whose IsSuccess,
StatusCode and Errors describe HTTP-level outcomes; returned errors are
reserved for invalid input and exchanges that never produced an answer.

Operations are grouped by API area: Auth, Application, Transfer,
Torrents, RSS and Search. BuildRequest and Client.Execute run any request
kind from string parameters.

Quick start:

	import (
	    "context"
	    "log"

	    qbt "github.com/jfxdev/go-qbtapi"
	)

	func main() {
	    client, err := qbt.New(qbt.Config{
	        BaseURL:  "http://localhost:8080",
	        Username: "admin",
	        Password: "password",
	    })
	    if err != nil {
	        log.Fatal(err)
	    }
	    ctx := context.Background()
	    if res, err := client.Login(ctx); err != nil || !res.IsSuccess() {
	        log.Fatal("login failed")
	    }
	    defer client.Close(ctx)

	    torrents, err := client.Torrents().List(ctx, qbt.ListOptions{Filter: "downloading"})
	    if err != nil {
	        log.Fatal(err)
	    }
	    for _, t := range torrents.Data() {
	        log.Println(t.Name, t.Progress)
	    }
	}

Configuration can also be read with ConfigFromEnv (QBITTORRENT_* variables),
LoadConfigFile and ConfigFromMap.
*/
package qbt
