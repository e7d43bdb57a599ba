package graph

import (
	"github.com/OFFIS-RIT/wisdom/pkg/common"
	"github.com/OFFIS-RIT/wisdom/pkg/logger"
)

// teamResponsibilities lists the responsibility keys of a team record. All of
// them produce edges from the team to the target.
var teamResponsibilities = []string{
	"owns_tools",
	"monitors_apps",
	"integrates_with",
	"owns_apps",
	"uses_tools",
	"responds_to",
}

// Build converts an organization model into a typed dependency graph and
// returns it together with its node type map.
//
// Categories are processed in a fixed order (tools, applications, people,
// servers, teams, events). Missing categories are empty, entities without an
// identifying field are skipped, and relationship fields of unexpected shape
// are normalized rather than rejected. Build never fails.
func Build(model common.OrganizationModel) (*Graph, map[string]common.NodeType) {
	g := New()

	addTools(g, model.Entities("tools"))
	addApplications(g, model.Entities("applications"))
	addPeople(g, model.Entities("people"))
	addServers(g, model.Entities("servers"))
	addTeams(g, model.Entities("teams"))
	addEvents(g, model.Entities("events"))

	logger.Debug("[Graph] Graph built", "nodes", g.NumNodes(), "edges", g.NumEdges(), "skipped", g.skipped)

	return g, g.Types()
}

// declare registers the entity as a node of type t and returns its id.
func (g *Graph) declare(e common.Entity, t common.NodeType, idKey string) (string, bool) {
	id, ok := e.ID(idKey)
	if !ok {
		g.skipped++
		logger.Debug("[Graph] Skipping entity without identifier", "type", t, "field", idKey)
		return "", false
	}
	g.AddNode(id, t)
	return id, true
}

func addTools(g *Graph, tools []common.Entity) {
	for _, tool := range tools {
		name, ok := g.declare(tool, common.NodeTypeTool, "name")
		if !ok {
			continue
		}
		rel := common.Entity{Fields: tool.Map("relationships")}
		for _, app := range rel.Strings("monitors_applications") {
			g.AddEdge(name, app)
		}
		for _, team := range rel.Strings("used_by_teams") {
			g.AddEdge(team, name)
		}
		for _, target := range rel.Strings("integrates_with") {
			g.AddEdge(name, target)
		}
	}
}

func addApplications(g *Graph, apps []common.Entity) {
	for _, app := range apps {
		name, ok := g.declare(app, common.NodeTypeApplication, "name")
		if !ok {
			continue
		}
		for _, server := range app.Strings("deployed_on") {
			g.AddEdge(name, server)
		}
		for _, monitor := range app.Strings("monitored_by") {
			g.AddEdge(monitor, name)
		}
	}
}

func addPeople(g *Graph, people []common.Entity) {
	for _, person := range people {
		name, ok := g.declare(person, common.NodeTypePerson, "name")
		if !ok {
			continue
		}
		for _, tool := range person.Strings("uses_tools") {
			g.AddEdge(name, tool)
		}
		for _, team := range person.Strings("teams") {
			g.AddEdge(name, team)
		}
	}
}

func addServers(g *Graph, servers []common.Entity) {
	for _, server := range servers {
		hostname, ok := g.declare(server, common.NodeTypeServer, "hostname")
		if !ok {
			continue
		}
		for _, app := range server.Strings("runs") {
			g.AddEdge(hostname, app)
		}
	}
}

func addTeams(g *Graph, teams []common.Entity) {
	for _, team := range teams {
		name, ok := g.declare(team, common.NodeTypeTeam, "name")
		if !ok {
			continue
		}
		for _, member := range team.Strings("members") {
			g.AddEdge(name, member)
		}
		resp := common.Entity{Fields: team.Map("responsibilities")}
		for _, key := range teamResponsibilities {
			for _, target := range resp.Strings(key) {
				g.AddEdge(name, target)
			}
		}
	}
}

func addEvents(g *Graph, events []common.Entity) {
	for _, event := range events {
		id, ok := g.declare(event, common.NodeTypeEvent, "id")
		if !ok {
			continue
		}
		for _, initiator := range event.Strings("initiator") {
			g.AddEdge(initiator, id)
		}
		for _, target := range event.Strings("related_to") {
			g.AddEdge(id, target)
		}
		for _, sub := range event.Strings("sub_events") {
			g.AddEdge(id, sub)
		}
	}
}
