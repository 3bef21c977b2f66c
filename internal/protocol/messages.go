package protocol

import (
	"strconv"
	"strings"
)

// ServerShutdown уведомление об остановке сервера
const ServerShutdown = "SERVER_SHUTDOWN"

// FlipY переводит y между системой клиента (снизу вверх) и сервера (сверху вниз).
// Преобразование симметрично: FlipY(FlipY(y)) == y.
func FlipY(y, worldHeight int) int {
	return worldHeight - 1 - y
}

// AssignID строка ASSIGN_ID,<id>
func AssignID(id int) string {
	return "ASSIGN_ID," + strconv.Itoa(id)
}

// PlayerJoin строка PLAYER_JOIN,<id>,<x>,<y>
func PlayerJoin(id int, x, y float64) string {
	return positional("PLAYER_JOIN", id, x, y)
}

// Spawn строка SPAWN,<id>,<x>,<y>
func Spawn(id int, x, y float64) string {
	return positional("SPAWN", id, x, y)
}

// PlayerMove строка PLAYER_MOVE,<id>,<x>,<y>
func PlayerMove(id int, x, y float64) string {
	return positional("PLAYER_MOVE", id, x, y)
}

// PlayerLeave строка PLAYER_LEAVE,<id>
func PlayerLeave(id int) string {
	return "PLAYER_LEAVE," + strconv.Itoa(id)
}

// PlayerName строка PLAYER_NAME,<id>,<name>
func PlayerName(id int, name string) string {
	return "PLAYER_NAME," + strconv.Itoa(id) + "," + name
}

// UpdateTile строка UPDATE_TILE,<x>,<clientY>,<typeId>,<layer>
func UpdateTile(x, clientY, typeID, layer int) string {
	var sb strings.Builder
	sb.WriteString("UPDATE_TILE,")
	sb.WriteString(strconv.Itoa(x))
	sb.WriteByte(',')
	sb.WriteString(strconv.Itoa(clientY))
	sb.WriteByte(',')
	sb.WriteString(strconv.Itoa(typeID))
	sb.WriteByte(',')
	sb.WriteString(strconv.Itoa(layer))
	return sb.String()
}

// FormatCoord форматирует координату с точностью 3 знака
func FormatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func positional(name string, id int, x, y float64) string {
	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteByte(',')
	sb.WriteString(strconv.Itoa(id))
	sb.WriteByte(',')
	sb.WriteString(FormatCoord(x))
	sb.WriteByte(',')
	sb.WriteString(FormatCoord(y))
	return sb.String()
}
