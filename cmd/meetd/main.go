package main

import "github.com/OpenVidu/openvidu-meet-sub010/pkg/cli"

func main() {
	cli.Execute()
}
