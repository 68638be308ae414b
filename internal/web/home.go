package web

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

func Home() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, _ = io.WriteString(w, `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Image Guess</title>
  </head>
  <body>
    <main class="shell">
      <header class="hero">
        <span class="tag">Image Guess</span>
        <h1>One prompt. One image. Fastest guess wins.</h1>
        <p>Open lobbies refresh below. Connect your client over the websocket to play.</p>
      </header>

      <section class="panel">
        <div>
          <h2>Open lobbies</h2>
          <p>Rooms waiting for players. Grab a code and join from your client.</p>
        </div>
        <table class="lobbies">
          <thead>
            <tr><th>Code</th><th>Room</th><th>Players</th><th>Rounds</th><th>Timer</th><th>Locked</th></tr>
          </thead>
          <tbody id="lobbyRows">
            <tr><td colspan="6">Loading lobbies...</td></tr>
          </tbody>
        </table>
      </section>
    </main>

    <script>
      const rows = document.getElementById("lobbyRows");

      async function refreshLobbies() {
        try {
          const res = await fetch("/api/games");
          const data = await res.json();
          const games = data.games || [];
          if (games.length === 0) {
            rows.innerHTML = "<tr><td colspan=\"6\">No open lobbies right now.</td></tr>";
            return;
          }
          rows.innerHTML = games.map((g) =>
            "<tr><td>" + g.code + "</td><td>" + g.room_name + "</td><td>" +
            g.online + "/" + g.players + "</td><td>" + g.total_rounds + "</td><td>" +
            g.timer_seconds + "s</td><td>" + (g.has_password ? "yes" : "no") + "</td></tr>"
          ).join("");
        } catch (err) {
          rows.innerHTML = "<tr><td colspan=\"6\">Failed to load lobbies.</td></tr>";
        }
      }

      refreshLobbies();
      setInterval(refreshLobbies, 5000);
    </script>
  </body>
</html>
`)
		return nil
	})
}
