// Command mqtt_publisher is a fake zigbee2mqtt bridge for trying z2mgen
// without real hardware. It retains a device list on bridge/devices,
// publishes state updates and answers set/get requests.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// 模拟设备
type fakeDevice struct {
	Name     string
	Address  string
	Interval time.Duration
	Exposes  []map[string]any

	mu    sync.Mutex
	state map[string]any
}

func (d *fakeDevice) snapshot() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	data, _ := json.Marshal(d.state)
	return data
}

func (d *fakeDevice) apply(update map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, v := range update {
		if k == "state" && v == "TOGGLE" {
			if d.state["state"] == "ON" {
				v = "OFF"
			} else {
				v = "ON"
			}
		}
		d.state[k] = v
	}
}

func (d *fakeDevice) tick() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state["linkquality"] = 100 + rand.Intn(155)
	if _, ok := d.state["brightness"]; ok && d.state["state"] == "ON" {
		d.state["brightness"] = rand.Intn(255)
	}
}

func devices() []*fakeDevice {
	return []*fakeDevice{
		{
			Name:     "pc_room_light",
			Address:  "0x60a423fffef1a847",
			Interval: 5 * time.Second,
			Exposes: []map[string]any{
				{"type": "light", "features": []any{
					map[string]any{"type": "binary", "name": "state", "property": "state", "access": 7, "value_on": "ON", "value_off": "OFF", "value_toggle": "TOGGLE"},
					map[string]any{"type": "numeric", "name": "brightness", "property": "brightness", "access": 7, "value_min": 0, "value_max": 254},
				}},
				{"type": "enum", "name": "effect", "property": "effect", "access": 2, "values": []string{"blink", "breathe", "okay"}},
				{"type": "numeric", "name": "linkquality", "property": "linkquality", "access": 1},
			},
			state: map[string]any{"state": "ON", "brightness": 120},
		},
		{
			Name:     "hall_plug",
			Address:  "0xbc33acfffe4e7084",
			Interval: 8 * time.Second,
			Exposes: []map[string]any{
				{"type": "switch", "features": []any{
					map[string]any{"type": "binary", "name": "state", "property": "state", "access": 7, "value_on": "ON", "value_off": "OFF", "value_toggle": "TOGGLE"},
				}},
				{"type": "binary", "name": "child_lock", "property": "child_lock", "access": 7, "value_on": true, "value_off": false},
				{"type": "numeric", "name": "linkquality", "property": "linkquality", "access": 1},
			},
			state: map[string]any{"state": "OFF", "child_lock": false},
		},
	}
}

func main() {
	broker := flag.String("broker", "tcp://localhost:1883", "MQTT broker地址")
	username := flag.String("username", "", "MQTT用户名")
	password := flag.String("password", "", "MQTT密码")
	namespace := flag.String("namespace", "zigbee2mqtt", "bridge base topic")
	mode := flag.String("mode", "continuous", "运行模式: schema, continuous")
	flag.Parse()

	opts := paho.NewClientOptions()
	opts.AddBroker(*broker)
	opts.SetClientID(fmt.Sprintf("z2mgen-fake-bridge-%d", time.Now().Unix()))
	if *username != "" {
		opts.SetUsername(*username)
		opts.SetPassword(*password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		fmt.Printf("连接丢失: %v\n", err)
	})

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		fmt.Printf("连接MQTT服务器失败: %v\n", token.Error())
		os.Exit(1)
	}
	fmt.Printf("已连接到MQTT服务器: %s\n", *broker)

	fleet := devices()
	if err := publishSchema(client, *namespace, fleet); err != nil {
		fmt.Printf("发布设备列表失败: %v\n", err)
		os.Exit(1)
	}

	switch *mode {
	case "schema":
		client.Disconnect(250)
	case "continuous":
		runBridge(client, *namespace, fleet)
	default:
		fmt.Println("未知的运行模式，请使用 schema 或 continuous")
		os.Exit(1)
	}
}

// publishSchema retains the device list the way the bridge does.
func publishSchema(client paho.Client, namespace string, fleet []*fakeDevice) error {
	entries := []map[string]any{
		{"friendly_name": "Coordinator", "ieee_address": "0x00124b0022ffc4a5", "type": "Coordinator", "definition": nil},
	}
	for _, d := range fleet {
		entries = append(entries, map[string]any{
			"friendly_name": d.Name,
			"ieee_address":  d.Address,
			"manufacturer":  "IKEA",
			"model_id":      "fake",
			"definition":    map[string]any{"description": "fake " + d.Name, "exposes": d.Exposes},
		})
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	token := client.Publish(namespace+"/bridge/devices", 0, true, data)
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	fmt.Printf("已发布 %d 个设备到 %s/bridge/devices\n", len(fleet), namespace)
	return nil
}

func runBridge(client paho.Client, namespace string, fleet []*fakeDevice) {
	byAddress := make(map[string]*fakeDevice, len(fleet))
	for _, d := range fleet {
		byAddress[d.Address] = d
		byAddress[d.Name] = d
	}

	// <ns>/<device>/set and <ns>/<device>/get
	token := client.Subscribe(namespace+"/+/+", 0, func(c paho.Client, msg paho.Message) {
		parts := strings.Split(strings.TrimPrefix(msg.Topic(), namespace+"/"), "/")
		if len(parts) != 2 {
			return
		}
		d, ok := byAddress[parts[0]]
		if !ok {
			return
		}
		switch parts[1] {
		case "set":
			var update map[string]any
			if err := json.Unmarshal(msg.Payload(), &update); err != nil {
				fmt.Printf("无效的set请求: %v\n", err)
				return
			}
			d.apply(update)
		case "get":
		default:
			return
		}
		publishState(c, namespace, d)
	})
	token.Wait()
	if token.Error() != nil {
		fmt.Printf("订阅失败: %v\n", token.Error())
		os.Exit(1)
	}

	for _, d := range fleet {
		go func(dev *fakeDevice) {
			for {
				dev.tick()
				publishState(client, namespace, dev)
				time.Sleep(dev.Interval)
			}
		}(d)
		fmt.Printf("设备 %s 将每 %v 上报一次状态\n", d.Name, d.Interval)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	fmt.Println("正在断开连接...")
	client.Disconnect(250)
}

func publishState(client paho.Client, namespace string, d *fakeDevice) {
	data := d.snapshot()
	token := client.Publish(namespace+"/"+d.Name, 0, false, data)
	token.Wait()
	if token.Error() != nil {
		fmt.Printf("发布消息失败: %v\n", token.Error())
		return
	}
	fmt.Printf("[%s] %s: %s\n", time.Now().Format("15:04:05"), d.Name, data)
}
